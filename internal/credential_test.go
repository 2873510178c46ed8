package internal

import (
	"errors"
	"testing"
)

func TestDecodeBasicFixture(t *testing.T) {
	username, digest, err := DecodeBasic("dm1kOjJiYjgwZDUzN2IxZGEzZTM4YmQzMDM2MWFhODU1Njg2YmRlMGVhY2Q3MTYyZmVmNmEyNWZlOTdiZjUyN2EyNWI=")
	if err != nil {
		t.Fatalf("DecodeBasic: %v", err)
	}
	if username != "vmd" {
		t.Fatalf("unexpected username %q", username)
	}
	if digest != "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b" {
		t.Fatalf("unexpected digest %q", digest)
	}
}

func TestDecodeBasicSplitsOnFirstColon(t *testing.T) {
	username, digest, err := DecodeBasic(EncodeBasic("alice", "a:b:c"))
	if err != nil || username != "alice" || digest != "a:b:c" {
		t.Fatalf("got %q %q %v", username, digest, err)
	}
}

func TestDecodeBasicRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!not-base64!!!", "bm9jb2xvbg==", "OnNlY3JldA=="} {
		if _, _, err := DecodeBasic(in); !errors.Is(err, ErrMalformedBasic) {
			t.Fatalf("DecodeBasic(%q): expected ErrMalformedBasic, got %v", in, err)
		}
	}
}

// FuzzDecodeBasic exercises credential decoding with arbitrary strings.
// Invalid inputs must return errors without panicking.
func FuzzDecodeBasic(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add(EncodeBasic("vmd", "digest"))
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		username, digest, err := DecodeBasic(input)
		if err != nil {
			return
		}
		u2, d2, err := DecodeBasic(EncodeBasic(username, digest))
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if u2 != username || d2 != digest {
			t.Fatalf("round trip mismatch: %q/%q vs %q/%q", username, digest, u2, d2)
		}
	})
}

func TestNewHexTokenLength(t *testing.T) {
	a, err := NewHexToken(32)
	if err != nil {
		t.Fatalf("NewHexToken: %v", err)
	}
	b, _ := NewHexToken(32)
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected tokens %q %q", a, b)
	}
	if _, err := NewHexToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestNewUID(t *testing.T) {
	uid, err := NewUID()
	if err != nil || len(uid) != 36 {
		t.Fatalf("unexpected uid %q err=%v", uid, err)
	}
}
