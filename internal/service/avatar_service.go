package service

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"chatterbox/internal/models"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	// DefaultAvatarDir is used when no AVATAR_DIR is configured.
	DefaultAvatarDir = "/tmp/chatterbox/avatars"
	// DefaultAvatarMaxSizeMB caps the accepted upload size.
	DefaultAvatarMaxSizeMB = 5

	// avatarMaxDim is the longest edge stored avatars are scaled down to.
	avatarMaxDim = 512

	jpegQuality = 85
)

var allowedAvatarExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// refPattern matches only names this service generates: a UUID plus one of
// the allowed extensions. Anything else is refused at serve time, so a ref
// can never traverse out of the avatar directory.
var refPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(png|jpg|jpeg|gif)$`)

// AvatarService validates uploaded avatar images and stores them as files
// served from /avatars/.
type AvatarService struct {
	dir      string
	maxBytes int64
}

// NewAvatarService returns an AvatarService writing to dir with the given
// size cap in megabytes. Zero values fall back to the defaults.
func NewAvatarService(dir string, maxSizeMB int) (*AvatarService, error) {
	if dir == "" {
		dir = DefaultAvatarDir
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultAvatarMaxSizeMB
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &AvatarService{
		dir:      dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}, nil
}

// Ingest validates content by filename extension (png/jpg/jpeg/gif,
// case-insensitive), decodes it, downscales oversized stills and writes the
// result under a generated name. The returned ref replaces the user's
// previous avatar; callers keep the old avatar when an error comes back.
func (s *AvatarService) Ingest(filename string, content []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedAvatarExts[ext]; !ok {
		return "", models.NewUnsupportedTypeError("Avatar must be a png, jpg, jpeg or gif file")
	}
	if len(content) == 0 {
		return "", models.NewValidationError("Avatar file is empty")
	}
	if int64(len(content)) > s.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("Avatar too large (max %dMB)", s.maxBytes/(1024*1024)))
	}

	out, err := s.normalize(ext, content)
	if err != nil {
		return "", err
	}

	ref := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, ref), out, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return ref, nil
}

// Remove deletes a previously stored avatar file. Best-effort; a missing
// file is not an error.
func (s *AvatarService) Remove(ref string) {
	if !refPattern.MatchString(ref) {
		return
	}
	_ = os.Remove(filepath.Join(s.dir, ref))
}

// Resolve maps a ref to its on-disk path, refusing anything that is not a
// generated name.
func (s *AvatarService) Resolve(ref string) (string, error) {
	if !refPattern.MatchString(ref) {
		return "", models.NewNotFoundError("Avatar", ref)
	}
	path := filepath.Join(s.dir, ref)
	if _, err := os.Stat(path); err != nil {
		return "", models.NewNotFoundError("Avatar", ref)
	}
	return path, nil
}

// normalize decodes the upload and re-encodes stills at a bounded size.
// GIFs are stored as uploaded to preserve animation frames.
func (s *AvatarService) normalize(ext string, content []byte) ([]byte, error) {
	if ext == ".gif" {
		if _, err := gif.DecodeAll(bytes.NewReader(content)); err != nil {
			return nil, models.NewValidationError("Invalid image file")
		}
		return content, nil
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	img = downscale(img)

	// Encode to match the extension the ref will carry.
	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

// downscale bounds the longest edge to avatarMaxDim, preserving aspect ratio.
func downscale(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= avatarMaxDim && h <= avatarMaxDim {
		return img
	}

	scale := float64(avatarMaxDim) / float64(w)
	if h > w {
		scale = float64(avatarMaxDim) / float64(h)
	}
	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
