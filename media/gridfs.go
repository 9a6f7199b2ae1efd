// Package media stores issue photos in a MongoDB GridFS bucket.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BucketName = "issueImages"
	URLPrefix  = "/media/"
)

var ErrNotFound = errors.New("media not found")

// GridFSStore implements the image store on a GridFS bucket. Stored files
// are served back at URLPrefix + <file id>.
type GridFSStore struct {
	db *mongo.Database
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	if _, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(BucketName)); err != nil {
		return nil, fmt.Errorf("create gridfs bucket: %w", err)
	}
	return &GridFSStore{db: db}, nil
}

// bucket returns a fresh handle per call. Deadlines are bucket state, so a
// shared handle would leak one request's deadline into another.
func (s *GridFSStore) bucket(ctx context.Context, write bool) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(s.db, options.GridFSBucket().SetName(BucketName))
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if write {
			err = b.SetWriteDeadline(deadline)
		} else {
			err = b.SetReadDeadline(deadline)
		}
	}
	return b, err
}

func (s *GridFSStore) Store(ctx context.Context, filename string, data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	name := uuid.NewString() + mtype.Extension()
	if ext := filepath.Ext(filename); ext != "" && mtype.Extension() == "" {
		name = uuid.NewString() + strings.ToLower(ext)
	}

	opts := options.GridFSUpload().SetMetadata(bson.M{
		"contentType":  mtype.String(),
		"originalName": filename,
	})

	bucket, err := s.bucket(ctx, true)
	if err != nil {
		return "", err
	}
	id, err := bucket.UploadFromStream(name, bytes.NewReader(data), opts)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return URLPrefix + id.Hex(), nil
}

func (s *GridFSStore) Delete(ctx context.Context, url string) error {
	id, err := parseURL(url)
	if err != nil {
		return err
	}
	bucket, err := s.bucket(ctx, true)
	if err != nil {
		return err
	}
	if err := bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Open streams a stored file and reports its content type.
func (s *GridFSStore) Open(ctx context.Context, hexID string) (io.ReadCloser, string, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, "", ErrNotFound
	}
	bucket, err := s.bucket(ctx, false)
	if err != nil {
		return nil, "", err
	}
	stream, err := bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	contentType := "application/octet-stream"
	var meta struct {
		ContentType string `bson:"contentType"`
	}
	if raw := stream.GetFile().Metadata; raw != nil {
		if err := bson.Unmarshal(raw, &meta); err == nil && meta.ContentType != "" {
			contentType = meta.ContentType
		}
	}
	return stream, contentType, nil
}

func parseURL(url string) (primitive.ObjectID, error) {
	if !strings.HasPrefix(url, URLPrefix) {
		return primitive.NilObjectID, fmt.Errorf("not a media url: %q", url)
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimPrefix(url, URLPrefix))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("not a media url: %q", url)
	}
	return id, nil
}
