package tags

import (
	"context"
	"errors"
	"fmt"
)

// Propagate copies the tags of src onto dst and sets dst's title to title.
//
// Within one key space everything is copied verbatim; across spaces only the
// shared fields and pictures travel. If the source cannot be read or the full
// write fails, dst still gets a title-only tag. The returned error describes
// what was lost and is meant as a warning: the audio at dst is untouched.
func Propagate(ctx context.Context, src, dst, title string) error {
	dstStore, err := StoreFor(dst)
	if err != nil {
		return err
	}

	var readErr error
	out := NewTagSet(dstStore.Space())
	if srcStore, err := StoreFor(src); err != nil {
		readErr = err
	} else if in, err := srcStore.Read(src); err != nil {
		readErr = fmt.Errorf("failed to read source tags: %w", err)
	} else {
		out = Translate(in, dstStore.Space())
	}
	out.SetTitle(title)

	writeErr := writeChecked(ctx, dstStore, dst, out)
	if writeErr == nil {
		return readErr
	}
	writeErr = fmt.Errorf("failed to write tags: %w", writeErr)

	titleOnly := NewTagSet(dstStore.Space())
	titleOnly.SetTitle(title)
	if err := writeChecked(ctx, dstStore, dst, titleOnly); err != nil {
		return errors.Join(readErr, writeErr, fmt.Errorf("failed to write title: %w", err))
	}
	return errors.Join(readErr, writeErr)
}

// writeChecked writes set and reads it back, failing if the title did not stick
func writeChecked(ctx context.Context, store Store, path string, set TagSet) error {
	if err := store.Write(ctx, path, set); err != nil {
		return err
	}
	got, err := store.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read back tags: %w", err)
	}
	if got.Title() != set.Title() {
		return fmt.Errorf("%w: title reads back as %q, want %q", ErrTitleMismatch, got.Title(), set.Title())
	}
	return nil
}
