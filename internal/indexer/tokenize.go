package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"filesearch/pkg/types"
)

var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// isLikelyText reports whether path, sized size bytes, is a candidate for
// content tokenization: under the configured size cap and MIME/heuristic
// indicates text.
func isLikelyText(path string, size, maxSize int64) bool {
	if size <= 0 || size > maxSize {
		return false
	}
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	if strings.HasPrefix(mime.String(), "text/") {
		return true
	}
	for parent := mime; parent != nil; parent = parent.Parent() {
		switch parent.String() {
		case "application/json", "application/xml", "application/x-sh", "application/javascript":
			return true
		}
	}
	return false
}

// readAndTokenize reads path, decodes it as UTF-8, and returns the
// normalized token set plus a content digest. No other encoding is
// detected: invalid UTF-8 sequences are replaced with U+FFFD. A decoder
// error is reported as a wrapped types.ErrEncoding so the caller can treat
// it as a non-fatal per-file error.
func readAndTokenize(path string) (tokens []string, digest string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}

	decoded, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", types.ErrEncoding, path, err)
	}

	sum := sha256.Sum256(decoded)
	return tokenize(string(decoded)), hex.EncodeToString(sum[:]), nil
}

// tokenize lowercases content, splits on runs of non-alphanumeric
// characters, drops tokens of length 1 or greater than 64, and
// deduplicates.
func tokenize(content string) []string {
	lower := strings.ToLower(content)
	raw := tokenSplitRe.Split(lower, -1)

	tokens := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		if n := utf8.RuneCountInString(t); n <= 1 || n > 64 {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}
