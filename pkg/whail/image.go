package whail

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ImageExists checks if an image is present locally. Images are not jailed:
// dependencies run stock registry images.
func (e *Engine) ImageExists(ctx context.Context, ref string) (bool, error) {
	if _, err := e.APIClient.ImageInspect(ctx, ref); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, ErrImageInspectFailed(ref, err)
	}
	return true, nil
}

// EnsureImage pulls ref unless it is already present. Pull progress is
// written to progress when non-nil.
func (e *Engine) EnsureImage(ctx context.Context, ref string, progress io.Writer) (retErr error) {
	exists, err := e.ImageExists(ctx, ref)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if e.ImagePuller == nil {
		return ErrImageNotFound(ref, errors.New("no image puller configured"))
	}

	reader, err := e.ImagePuller(ctx, ref)
	if err != nil {
		return ErrImageNotFound(ref, err)
	}
	defer func() {
		retErr = errors.Join(retErr, reader.Close())
	}()

	if progress == nil {
		progress = io.Discard
	}
	if _, err := io.Copy(progress, reader); err != nil {
		return ErrImageNotFound(ref, fmt.Errorf("stream pull output: %w", err))
	}
	return nil
}
