package blob

import "testing"

func TestGSRootPattern(t *testing.T) {
	cases := []struct {
		root   string
		bucket string
		prefix string
	}{
		{"gs:my-bucket/stmts/", "my-bucket", "stmts/"},
		{"gs:my-bucket/", "my-bucket", ""},
		{"gs:my.bucket/a/b/c", "my.bucket", "a/b/c"},
	}
	for _, c := range cases {
		m := gsRootPatt.FindStringSubmatch(c.root)
		if m == nil {
			t.Fatalf("%s did not match", c.root)
		}
		if m[1] != c.bucket || m[2] != c.prefix {
			t.Fatalf("%s: got bucket=%q prefix=%q", c.root, m[1], m[2])
		}
	}

	for _, root := range []string{"/var/data", "./data", "s3:bucket/key", "data"} {
		if gsRootPatt.MatchString(root) {
			t.Fatalf("%s should not match the gs pattern", root)
		}
	}
}

func TestSplitLocation(t *testing.T) {
	bucket, key, err := splitLocation("gs:my-bucket/stmts/batch1.json")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if bucket != "my-bucket" || key != "stmts/batch1.json" {
		t.Fatalf("got bucket=%q key=%q", bucket, key)
	}

	if _, _, err := splitLocation("/local/path.json"); err == nil {
		t.Fatal("expected error for non-gs location")
	}
}
