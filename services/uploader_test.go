package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reportConfig = FileFieldConfig{
		Field:        "report",
		DisplayName:  "Report",
		AllowedTypes: []string{"application/pdf"},
		MaxSize:      1 << 20,
	}
	certificateConfig = FileFieldConfig{
		Field:        "certificate",
		DisplayName:  "Certificate",
		AllowedTypes: []string{"application/pdf", "image/png"},
		MaxSize:      1 << 20,
	}
)

func TestUploadAll_Success(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	form := buildForm(t, nil,
		formFile{field: "report", name: "report.pdf", contentType: "application/pdf", size: 100},
		formFile{field: "certificate", name: "cert.png", contentType: "image/png", size: 100},
	)

	files, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig, certificateConfig})
	require.NoError(t, err)

	assert.Len(t, files, 2)
	assert.True(t, files["report"].Present())
	assert.True(t, files["certificate"].Present())
	assert.Len(t, store.uploads, 2)
	assert.Empty(t, store.bulkCalls, "nothing should be rolled back on success")
}

func TestUploadAll_MissingRequiredFile(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	form := buildForm(t, nil)

	_, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig})

	var missing *MissingFileError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "report", missing.Field)
	assert.Empty(t, store.uploads)
}

func TestUploadAll_UnsupportedTypePerformsNoUploads(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	form := buildForm(t, nil,
		formFile{field: "report", name: "report.exe", contentType: "application/octet-stream", size: 100},
	)

	_, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig})

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "report", unsupported.Field)
	assert.Equal(t, []string{"application/pdf"}, unsupported.Allowed)
	assert.Empty(t, store.uploads, "validation must reject before any upload")
}

func TestUploadAll_FileTooLarge(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	small := reportConfig
	small.MaxSize = 10

	form := buildForm(t, nil,
		formFile{field: "report", name: "report.pdf", contentType: "application/pdf", size: 11},
	)

	_, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{small})

	var tooLarge *FileTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(10), tooLarge.MaxSize)
	assert.Empty(t, store.uploads)
}

func TestUploadAll_FailureRollsBackEarlierFields(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	// report is valid, certificate has a disallowed type.
	form := buildForm(t, nil,
		formFile{field: "report", name: "report.pdf", contentType: "application/pdf", size: 100},
		formFile{field: "certificate", name: "cert.gif", contentType: "image/gif", size: 100},
	)

	_, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig, certificateConfig})

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "certificate", unsupported.Field)

	require.Len(t, store.uploads, 1)
	require.Len(t, store.bulkCalls, 1)
	assert.Equal(t, store.uploads, store.bulkCalls[0], "exactly the already-uploaded objects are deleted")
}

func TestUploadAll_UploadErrorRollsBackAndSurfacesUploadError(t *testing.T) {
	store := &fakeObjectStore{failUploadAt: 2}
	uploader := NewUploader(store)

	form := buildForm(t, nil,
		formFile{field: "report", name: "report.pdf", contentType: "application/pdf", size: 100},
		formFile{field: "certificate", name: "cert.png", contentType: "image/png", size: 100},
	)

	_, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig, certificateConfig})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "certificate")

	require.Len(t, store.bulkCalls, 1)
	assert.Equal(t, store.uploads, store.bulkCalls[0])
}

func TestRollback_ReportsFailedDeletes(t *testing.T) {
	store := &fakeObjectStore{bulkFailKeys: map[string]string{"internships/obj-1": "access denied"}}
	uploader := NewUploader(store)

	form := buildForm(t, nil,
		formFile{field: "report", name: "report.pdf", contentType: "application/pdf", size: 100},
	)
	files, err := uploader.UploadAll(context.Background(), form, "internships", []FileFieldConfig{reportConfig})
	require.NoError(t, err)

	comp := uploader.Rollback(context.Background(), []string{files["report"].StorageKey})
	assert.Equal(t, 1, comp.Attempted)
	assert.Equal(t, 0, comp.Succeeded)
	require.Len(t, comp.Failed, 1)
	assert.Equal(t, "access denied", comp.Failed[0].Reason)
}

func TestRollback_NoKeysIsNoop(t *testing.T) {
	store := &fakeObjectStore{}
	uploader := NewUploader(store)

	comp := uploader.Rollback(context.Background(), nil)
	assert.Equal(t, CompensationResult{}, comp)
	assert.Empty(t, store.bulkCalls)
}
