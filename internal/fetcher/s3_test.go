package fetcher

import "testing"

func TestParseS3URISplitsBucketAndKey(t *testing.T) {
	bucket, key, err := parseS3URI("s3://my-bucket/path/to/object.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "my-bucket" {
		t.Fatalf("expected bucket 'my-bucket', got %q", bucket)
	}
	if key != "path/to/object.json" {
		t.Fatalf("expected key 'path/to/object.json', got %q", key)
	}
}

func TestParseS3URIRejectsWrongScheme(t *testing.T) {
	if _, _, err := parseS3URI("file:///tmp/x"); err == nil {
		t.Fatalf("expected error for non-s3 scheme")
	}
}
