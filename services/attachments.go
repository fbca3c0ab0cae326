package services

import (
	"context"
	"mime/multipart"

	"github.com/sirupsen/logrus"

	"student-records-manager/models"
)

// AttachmentManager coordinates uploads with record writes. There is no
// transaction spanning the object store and the database; ordering plus
// compensating deletes are the only consistency mechanism.
type AttachmentManager struct {
	store    ObjectStore
	uploader *Uploader
}

func NewAttachmentManager(store ObjectStore, uploader *Uploader) *AttachmentManager {
	return &AttachmentManager{store: store, uploader: uploader}
}

// CreateWithFiles uploads every configured field and then persists the
// owning record via persist. If persist fails, every uploaded object is
// rolled back and persist's error is returned unchanged.
func (m *AttachmentManager) CreateWithFiles(ctx context.Context, form *multipart.Form, folder string, configs []FileFieldConfig, persist func(files map[string]models.Attachment) error) error {
	files, err := m.uploader.UploadAll(ctx, form, folder, configs)
	if err != nil {
		return err
	}

	if err := persist(files); err != nil {
		keys := make([]string, 0, len(files))
		for _, attachment := range files {
			keys = append(keys, attachment.StorageKey)
		}
		m.uploader.Rollback(ctx, keys)
		return err
	}
	return nil
}

// ReplaceFile uploads a replacement for one slot and persists the new
// reference via persist. The old object is deleted only after the write is
// confirmed: deleting it earlier could lose both objects on a write failure,
// deleting it later risks at worst a leaked old object. If persist fails the
// new upload is rolled back and the old object is left untouched.
func (m *AttachmentManager) ReplaceFile(ctx context.Context, form *multipart.Form, folder string, cfg FileFieldConfig, old models.Attachment, persist func(replacement models.Attachment) error) error {
	files, err := m.uploader.UploadAll(ctx, form, folder, []FileFieldConfig{cfg})
	if err != nil {
		return err
	}
	replacement := files[cfg.Field]

	if err := persist(replacement); err != nil {
		m.uploader.Rollback(ctx, []string{replacement.StorageKey})
		return err
	}

	if old.Present() {
		if err := m.store.Delete(ctx, old.StorageKey); err != nil {
			logrus.WithError(err).WithField("key", old.StorageKey).Warn("failed to delete replaced object")
		}
	}
	return nil
}

// DeleteWithCleanup removes the record via remove and only then deletes its
// remote objects. Remote failures after a confirmed record deletion are
// logged, not surfaced: the record being gone is the user-visible contract.
func (m *AttachmentManager) DeleteWithCleanup(ctx context.Context, attachments []models.Attachment, remove func() error) error {
	if err := remove(); err != nil {
		return err
	}

	keys := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		if attachment.Present() {
			keys = append(keys, attachment.StorageKey)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	res := m.store.BulkDelete(ctx, keys)
	if len(res.Failed) > 0 {
		logrus.WithFields(logrus.Fields{
			"attempted": len(keys),
			"succeeded": len(res.Deleted),
			"keys":      res.Failed,
		}).Warn("record deleted but remote cleanup left orphaned objects")
	}
	return nil
}
