package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/sirupsen/logrus"

	"student-records-manager/models"
)

// FileFieldConfig declares what is acceptable for one attachment slot of a
// request. Defined per operation, never persisted.
type FileFieldConfig struct {
	Field        string
	DisplayName  string
	AllowedTypes []string
	MaxSize      int64
}

// MissingFileError reports an absent required file field.
type MissingFileError struct {
	Field       string
	DisplayName string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("required file %q is missing", e.Field)
}

// UnsupportedTypeError reports a file whose declared MIME type is outside
// the slot's allow-list.
type UnsupportedTypeError struct {
	Field   string
	Allowed []string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("file %q must be one of: %s", e.Field, strings.Join(e.Allowed, ", "))
}

// FileTooLargeError reports a file exceeding the slot's size cap.
type FileTooLargeError struct {
	Field   string
	MaxSize int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %q exceeds the maximum size of %d bytes", e.Field, e.MaxSize)
}

// CompensationResult reports the outcome of a rollback so leak counts can be
// asserted on instead of log lines.
type CompensationResult struct {
	Attempted int
	Succeeded int
	Failed    []FailedDelete
}

// Uploader validates and uploads a request's file payloads as one batch.
// Either every configured field ends up in the store or, modulo best-effort
// delete failures, none remain.
type Uploader struct {
	store ObjectStore
}

func NewUploader(store ObjectStore) *Uploader {
	return &Uploader{store: store}
}

// UploadAll processes configs in order: presence, MIME type and size checks,
// then upload. Only the first file per field is considered. On any failure
// every object uploaded so far in this call is rolled back and the original
// error is returned.
func (u *Uploader) UploadAll(ctx context.Context, form *multipart.Form, folder string, configs []FileFieldConfig) (map[string]models.Attachment, error) {
	result := make(map[string]models.Attachment, len(configs))
	uploaded := make([]string, 0, len(configs))

	fail := func(err error) (map[string]models.Attachment, error) {
		u.Rollback(ctx, uploaded)
		return nil, err
	}

	for _, cfg := range configs {
		headers := form.File[cfg.Field]
		if len(headers) == 0 {
			return fail(&MissingFileError{Field: cfg.Field, DisplayName: cfg.DisplayName})
		}
		header := headers[0]

		if err := CheckFile(header, cfg); err != nil {
			return fail(err)
		}

		file, err := header.Open()
		if err != nil {
			return fail(fmt.Errorf("failed to open file %q: %w", cfg.Field, err))
		}
		attachment, err := u.store.Upload(ctx, file, header, folder)
		file.Close()
		if err != nil {
			return fail(fmt.Errorf("failed to upload %q: %w", cfg.Field, err))
		}

		result[cfg.Field] = attachment
		uploaded = append(uploaded, attachment.StorageKey)
	}

	return result, nil
}

// CheckFile validates a file header against a slot's policy without touching
// the store. Handlers use it to reject a request before any side effects.
func CheckFile(header *multipart.FileHeader, cfg FileFieldConfig) error {
	if !typeAllowed(header.Header.Get("Content-Type"), cfg.AllowedTypes) {
		return &UnsupportedTypeError{Field: cfg.Field, Allowed: cfg.AllowedTypes}
	}
	if header.Size > cfg.MaxSize {
		return &FileTooLargeError{Field: cfg.Field, MaxSize: cfg.MaxSize}
	}
	return nil
}

// Rollback bulk-deletes the given keys. Failures are logged, never
// re-raised: the caller's original error is what the client must see.
func (u *Uploader) Rollback(ctx context.Context, keys []string) CompensationResult {
	if len(keys) == 0 {
		return CompensationResult{}
	}

	res := u.store.BulkDelete(ctx, keys)
	comp := CompensationResult{
		Attempted: len(keys),
		Succeeded: len(res.Deleted),
		Failed:    res.Failed,
	}

	entry := logrus.WithFields(logrus.Fields{
		"attempted": comp.Attempted,
		"succeeded": comp.Succeeded,
		"failed":    len(comp.Failed),
	})
	if len(comp.Failed) > 0 {
		entry.WithField("keys", comp.Failed).Warn("upload rollback left orphaned objects")
	} else {
		entry.Info("rolled back uploaded objects")
	}
	return comp
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(contentType, t) {
			return true
		}
	}
	return false
}
