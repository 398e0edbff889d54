package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store uploads recordings to a bucket. Objects are immutable, so every
// Append writes one JSON-lines chunk named after the sequence number of its
// first record:
//
//	<prefix><session>/<seq>.jsonl
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store writing under prefix in bucket. A non-empty
// prefix should end in a slash.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) chunkKey(session string, seq uint64) string {
	return fmt.Sprintf("%s%s/%020d.jsonl", s.prefix, session, seq)
}

// Append implements Store.
func (s *S3Store) Append(ctx context.Context, session string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return ErrStorage.WithSubject("session %s", session).Wrap(err)
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.chunkKey(session, recs[0].Seq)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return ErrStorage.WithSubject("session %s", session).Wrap(err)
	}
	return nil
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, session string) ([]Record, error) {
	keys, _, err := s.list(ctx, s.prefix+session+"/", "")
	if err != nil {
		return nil, ErrStorage.WithSubject("session %s", session).Wrap(err)
	}
	if len(keys) == 0 {
		return nil, ErrNotFound.WithSubject("session %s", session)
	}
	sort.Strings(keys)

	var recs []Record
	for _, key := range keys {
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, ErrStorage.WithSubject("%s", key).Wrap(err)
		}
		chunk, err := decodeLines(out.Body)
		out.Body.Close()
		if err != nil {
			return nil, ErrStorage.WithSubject("%s", key).Wrap(err)
		}
		recs = append(recs, chunk...)
	}
	return recs, nil
}

// Sessions implements Store.
func (s *S3Store) Sessions(ctx context.Context) ([]string, error) {
	_, prefixes, err := s.list(ctx, s.prefix, "/")
	if err != nil {
		return nil, ErrStorage.Wrap(err)
	}
	names := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(p, s.prefix), "/"))
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store. The client is owned by the caller.
func (s *S3Store) Close() error {
	return nil
}

func (s *S3Store) list(ctx context.Context, prefix, delimiter string) (keys, prefixes []string, err error) {
	in := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if delimiter != "" {
		in.Delimiter = aws.String(delimiter)
	}

	p := s3.NewListObjectsV2Paginator(s.client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		for _, cp := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(cp.Prefix))
		}
	}
	return keys, prefixes, nil
}

func decodeLines(r io.Reader) ([]Record, error) {
	var recs []Record
	dec := json.NewDecoder(r)
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}
