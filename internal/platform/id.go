package platform

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const shortIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Load balancer target group names are limited to 32 characters.
const (
	maxPoolNameLength = 32
	poolSuffixLength  = 8
	poolNamePrefix    = "auto-"
)

func NewID() string {
	return uuid.New().String()
}

// ImageTag returns a build tag that sorts by build time and is unique per build.
func ImageTag(now time.Time) string {
	return strconv.FormatInt(now.Unix(), 10) + "-" + randomString(6)
}

// TargetPoolPrefix is the name prefix shared by every target pool of a service.
// Long service names are shortened so the time suffix always fits.
func TargetPoolPrefix(service string) string {
	room := maxPoolNameLength - len(poolNamePrefix) - 1 - poolSuffixLength
	if len(service) > room {
		service = strings.TrimRight(service[:room], "-")
	}
	return poolNamePrefix + service + "-"
}

// IsTargetPoolName reports whether name has the exact shape of a pool created
// for service: its prefix followed by a full time suffix and nothing else.
// Services sharing a truncated prefix still match; callers that need
// ownership must also check the pool's Service tag.
func IsTargetPoolName(service, name string) bool {
	suffix, ok := strings.CutPrefix(name, TargetPoolPrefix(service))
	if !ok || len(suffix) != poolSuffixLength {
		return false
	}
	for _, c := range suffix {
		if !strings.ContainsRune(shortIDAlphabet, c) {
			return false
		}
	}
	return true
}

// TargetPoolName names a target pool after its service and creation time.
// The suffix is the creation time in base36 milliseconds, so names of one
// service sort by age.
func TargetPoolName(service string, created time.Time) string {
	return TargetPoolPrefix(service) + PoolSuffix(created)
}

// PoolSuffix encodes t as a fixed-width base36 millisecond timestamp.
func PoolSuffix(t time.Time) string {
	s := strconv.FormatInt(t.UnixMilli(), 36)
	for len(s) < poolSuffixLength {
		s = "0" + s
	}
	if len(s) > poolSuffixLength {
		s = s[len(s)-poolSuffixLength:]
	}
	return s
}

func randomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = shortIDAlphabet[b[i]%byte(len(shortIDAlphabet))]
	}
	return string(b)
}
