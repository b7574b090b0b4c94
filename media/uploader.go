// Package media stores uploaded works and hands back durable URLs. The disk
// implementation keeps files under the configured media directory; the web
// layer serves that directory statically, so the returned URL stays valid for
// the lifetime of the file.
package media

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/deemkeen/clubspace/domain"
	"github.com/deemkeen/clubspace/errs"
	"github.com/deemkeen/clubspace/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Uploader is the CDN collaborator contract: store a file, get a durable URL.
type Uploader interface {
	Upload(filename string, mediaType domain.MediaType, r io.Reader) (string, error)
}

var extensions = map[string]domain.MediaType{
	".jpg":  domain.MediaImage,
	".jpeg": domain.MediaImage,
	".png":  domain.MediaImage,
	".gif":  domain.MediaImage,
	".webp": domain.MediaImage,
	".mp4":  domain.MediaVideo,
	".webm": domain.MediaVideo,
	".mov":  domain.MediaVideo,
	".mp3":  domain.MediaAudio,
	".wav":  domain.MediaAudio,
	".ogg":  domain.MediaAudio,
}

// TypeForFilename derives the media type from the file extension.
func TypeForFilename(filename string) (domain.MediaType, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mediaType, ok := extensions[ext]
	if !ok {
		return "", errors.Wrapf(errs.ErrValidation, "unsupported file type %s", ext)
	}
	return mediaType, nil
}

// DiskUploader writes uploads into a subdirectory of the config dir.
type DiskUploader struct {
	dir string
}

func NewDiskUploader(subdir string) *DiskUploader {
	return &DiskUploader{dir: subdir}
}

func (u *DiskUploader) Upload(filename string, mediaType domain.MediaType, r io.Reader) (string, error) {
	if _, err := TypeForFilename(filename); err != nil {
		return "", err
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	path := util.ResolveFilePathWithSubdir(u.dir, name)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", err
	}

	return "/media/" + name, nil
}
