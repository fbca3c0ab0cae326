package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"student-records-manager/models"
)

// fakeObjectStore records every call so tests can assert on exactly which
// objects were uploaded and deleted, and in which order.
type fakeObjectStore struct {
	mu           sync.Mutex
	seq          int
	uploads      []string
	deletes      []string
	bulkCalls    [][]string
	events       []string
	failUploadAt int               // 1-based upload call that fails; 0 = never
	deleteErr    error             // returned from every Delete
	bulkFailKeys map[string]string // key -> failure reason in BulkDelete
}

func (f *fakeObjectStore) Upload(_ context.Context, _ multipart.File, _ *multipart.FileHeader, folder string) (models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if f.failUploadAt == f.seq {
		return models.Attachment{}, errors.New("upstream storage failure")
	}
	key := fmt.Sprintf("%s/obj-%d", folder, f.seq)
	f.uploads = append(f.uploads, key)
	f.events = append(f.events, "upload:"+key)
	return models.Attachment{URL: "https://cdn.test/" + key, StorageKey: key}, nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, key)
	f.events = append(f.events, "delete:"+key)
	return nil
}

func (f *fakeObjectStore) BulkDelete(_ context.Context, keys []string) BulkDeleteResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls = append(f.bulkCalls, keys)
	result := BulkDeleteResult{}
	for _, key := range keys {
		if reason, ok := f.bulkFailKeys[key]; ok {
			result.Failed = append(result.Failed, FailedDelete{Key: key, Reason: reason})
			continue
		}
		result.Deleted = append(result.Deleted, key)
		f.events = append(f.events, "delete:"+key)
	}
	return result
}

func (f *fakeObjectStore) mark(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type formFile struct {
	field       string
	name        string
	contentType string
	size        int
}

func buildForm(t *testing.T, fields map[string]string, files ...formFile) *multipart.Form {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte("x"), f.size))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form
}
