package aws

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"canvas-editor/core"
	"canvas-editor/stores/storetest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestDesignStore(t *testing.T) {
	storetest.DesignStore(t, func(t *testing.T) core.DesignStore {
		return newStore(newFakeS3(), "bucket")
	})
}

func TestSave_UsesDesignPrefix(t *testing.T) {
	fake := newFakeS3()
	store := newStore(fake, "bucket")
	if err := store.Save(context.Background(), &core.Design{ID: "d1"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, ok := fake.objects["designs/d1.json"]; !ok {
		t.Errorf("objects = %v, want designs/d1.json", fake.objects)
	}
}

func TestSave_PutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	store := newStore(fake, "bucket")
	if err := store.Save(context.Background(), &core.Design{ID: "d1"}); err == nil {
		t.Error("Save() should surface the upload error")
	}
}

func TestDesignKey_RejectsPaths(t *testing.T) {
	for _, id := range []string{"", ".", "..", "a/b", "../x", `a\b`} {
		if _, err := designKey(id); err == nil {
			t.Errorf("designKey(%q) should fail", id)
		}
	}
	if key, err := designKey("01HX"); err != nil || key != "designs/01HX.json" {
		t.Errorf("designKey() = %q, %v", key, err)
	}
}

func TestList_SkipsUnreadableObjects(t *testing.T) {
	fake := newFakeS3()
	store := newStore(fake, "bucket")
	if err := store.Save(context.Background(), &core.Design{ID: "good", Data: []byte("x")}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	fake.objects["designs/bad.json"] = []byte("{broken")

	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "good" || list[0].Data != nil {
		t.Errorf("List() = %+v", list)
	}
}
