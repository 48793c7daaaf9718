package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"canvas-editor/core"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

const designPrefix = "designs/"

// objectAPI is the part of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Store struct {
	client objectAPI
	bucket string
}

// NewStore creates an S3-backed store using the default AWS credential
// chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return newStore(s3.NewFromConfig(cfg), bucketName), nil
}

func newStore(client objectAPI, bucket string) *s3Store {
	return &s3Store{client: client, bucket: bucket}
}

func designKey(id string) (string, error) {
	if id == "" || id == "." || id == ".." || path.Base(id) != id || strings.Contains(id, `\`) {
		return "", fmt.Errorf("invalid design id %q", id)
	}
	return designPrefix + id + ".json", nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *s3Store) List(ctx context.Context) ([]*core.Design, error) {
	designs := make([]*core.Design, 0)
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(designPrefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list designs: %w", err)
		}
		for _, object := range page.Contents {
			d, err := s.read(ctx, aws.ToString(object.Key))
			if err != nil {
				logrus.WithError(err).WithField("key", aws.ToString(object.Key)).Warn("Failed to read design object, skipping")
				continue
			}
			d.Data = nil
			designs = append(designs, d)
		}
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})

	logrus.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *s3Store) read(ctx context.Context, key string) (*core.Design, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read design data: %w", err)
	}
	var d core.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode design: %w", err)
	}
	return &d, nil
}

func (s *s3Store) Get(ctx context.Context, id string) (*core.Design, error) {
	log := logrus.WithField("design_id", id)

	key, err := designKey(id)
	if err != nil {
		return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}
	d, err := s.read(ctx, key)
	if err != nil {
		if isNotFound(err) {
			log.Warn("Design not found")
			return nil, fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to get design")
		return nil, fmt.Errorf("get design %s: %w", id, err)
	}

	log.Info("Design retrieved successfully")
	return d, nil
}

func (s *s3Store) Save(ctx context.Context, design *core.Design) error {
	key, err := designKey(design.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	design.CreatedAt = now
	if existing, err := s.read(ctx, key); err == nil {
		design.CreatedAt = existing.CreatedAt
	}
	design.UpdatedAt = now

	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("save design %s: %w", design.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"design_id":   design.ID,
		"data_length": len(design.Data),
	}).Info("Design saved successfully")
	return nil
}

func (s *s3Store) Delete(ctx context.Context, id string) error {
	key, err := designKey(id)
	if err != nil {
		return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
	}

	// DeleteObject succeeds for missing keys, so look first.
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("design %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("delete design %s: %w", id, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete design %s: %w", id, err)
	}

	logrus.WithField("design_id", id).Info("Design deleted successfully")
	return nil
}
