// SPDX-FileCopyrightText: 2021 Softbear, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later

package filesaver

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Filesystem saves files as objects in a single bucket, the same
// svc.PutObjectRequest shape server/cloud/fs/s3.go uses for its own
// static-file upload, generalized from a hardcoded "no-transform,
// public, max-age" cache-control string (meant for a CDN-fronted web
// asset) to a plain object write, since a converted model/texture isn't
// served the same way a live game's static assets are.
type S3Filesystem struct {
	svc    *s3.S3
	bucket string
}

// NewS3Filesystem returns an S3-backed Filesystem writing into bucket.
func NewS3Filesystem(sess *session.Session, bucket string) *S3Filesystem {
	return &S3Filesystem{svc: s3.New(sess), bucket: bucket}
}

func (f *S3Filesystem) SaveFile(name string, data []byte) error {
	req, _ := f.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err := req.Send(); err != nil {
		return fmt.Errorf("filesaver: s3 put %q: %w", name, err)
	}
	return nil
}
