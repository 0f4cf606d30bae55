package blocklist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"macblock/internal/cmderr"
)

// maxFetchBytes caps a source download.
const maxFetchBytes = 100 * 1024 * 1024

const userAgent = "macblock/1.0"

// Fetch downloads a source and verifies any pinned SHA-256. expectedSHA256
// overrides the catalog pin when non-empty. HTTP(S) downloads are attempted
// up to 3 times with backoff on transient network errors; s3:// sources get
// a single attempt, and verification failures are never retried.
func Fetch(src Source, expectedSHA256 string, timeout time.Duration) (string, error) {
	if expectedSHA256 == "" {
		expectedSHA256 = src.SHA256
	}

	var body []byte
	var err error
	if strings.HasPrefix(src.URL, "s3://") {
		body, err = fetchS3(src.URL, timeout)
	} else {
		body, err = fetchHTTP(src.URL, timeout)
	}
	if err != nil {
		return "", err
	}

	if looksLikeHTML(body) {
		return "", cmderr.New(cmderr.User,
			"source %s returned HTML, not a hosts file (wrong URL or a captive portal?)", src.Name)
	}

	if expectedSHA256 != "" {
		sum := sha256.Sum256(body)
		actual := hex.EncodeToString(sum[:])
		expected := strings.ToLower(strings.TrimSpace(expectedSHA256))
		if actual != expected {
			return "", cmderr.New(cmderr.User,
				"sha256 mismatch for %s: expected %s, got %s", src.Name, expected, actual)
		}
		logrus.WithField("sha256", actual).Debug("source checksum verified")
	}

	// Invalid bytes must never abort a compile; replace them.
	return strings.ToValidUTF8(string(body), "�"), nil
}

func fetchHTTP(url string, timeout time.Duration) ([]byte, error) {
	client := &http.Client{Timeout: timeout}

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequest(http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(cmderr.New(cmderr.User, "invalid source URL %s", url))
			}
			req.Header.Set("User-Agent", userAgent)

			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err = readLimited(resp.Body)
			return err
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logrus.WithError(err).WithField("attempt", n+1).Warn("source download failed, retrying")
		}),
	)
	if err != nil {
		if e, ok := cmderr.As(err); ok {
			return nil, e
		}
		return nil, cmderr.Wrap(cmderr.Transient, err, "download %s", url)
	}
	return body, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFetchBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxFetchBytes {
		return nil, retry.Unrecoverable(cmderr.New(cmderr.User,
			"source exceeds the %d MB download cap", maxFetchBytes/(1024*1024)))
	}
	return data, nil
}

// looksLikeHTML sniffs the first kilobyte for markup: either an explicit
// document prefix or a high angle-bracket density.
func looksLikeHTML(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	trimmed := strings.TrimSpace(strings.ToLower(string(head)))
	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		return true
	}
	brackets := strings.Count(trimmed, "<") + strings.Count(trimmed, ">")
	return brackets > 32
}
