package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// PayloadInfo is the decoded form of a QR payload string.
type PayloadInfo struct {
	Prefix         string `json:"prefix"`
	BatchID        string `json:"batchId"`
	SequenceNumber int    `json:"sequenceNumber"`
	Fingerprint    string `json:"fingerprint"`
}

// Generator produces QR payload strings of the form
// {prefix}_{batchID}_{sequence:06d}_{fingerprint:8}. The fingerprint hashes
// a process-wide monotonic counter together with a nanosecond timestamp, so
// two codes generated in the same instant can never collide.
type Generator struct {
	prefix  string
	counter atomic.Uint64
}

func NewGenerator(prefix string) *Generator {
	return &Generator{prefix: prefix}
}

// Generate builds the payload for one unit. The batch id must be non-empty
// and free of underscores, which would break the wire format.
func (g *Generator) Generate(batchID string, sequence int) (string, error) {
	if batchID == "" || strings.Contains(batchID, "_") {
		return "", fmt.Errorf("invalid batch id %q", batchID)
	}
	if sequence < 1 || sequence > 999999 {
		return "", fmt.Errorf("sequence %d out of range", sequence)
	}
	fp := g.fingerprint(batchID, sequence)
	return fmt.Sprintf("%s_%s_%06d_%s", g.prefix, batchID, sequence, fp), nil
}

func (g *Generator) fingerprint(batchID string, sequence int) string {
	n := g.counter.Add(1)
	seed := fmt.Sprintf("%s|%d|%d|%d", batchID, sequence, time.Now().UnixNano(), n)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:8]
}

// ValidatePayload checks the wire format of a scanned code without touching
// storage: prefix, exactly four underscore-delimited parts, a six-digit
// sequence and an eight-character fingerprint, charset [A-Za-z0-9_-].
func ValidatePayload(prefix, data string) bool {
	if !strings.HasPrefix(data, prefix+"_") {
		return false
	}
	for _, c := range data {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	parts := strings.Split(data, "_")
	if len(parts) != 4 {
		return false
	}
	if parts[1] == "" {
		return false
	}
	seq := parts[2]
	if len(seq) != 6 {
		return false
	}
	for _, c := range seq {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(parts[3]) == 8
}

// ExtractPayload recovers the batch id and sequence number from a payload.
func ExtractPayload(prefix, data string) (*PayloadInfo, error) {
	if !ValidatePayload(prefix, data) {
		return nil, fmt.Errorf("malformed QR payload %q", data)
	}
	parts := strings.Split(data, "_")
	seq, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed sequence in %q", data)
	}
	return &PayloadInfo{
		Prefix:         parts[0],
		BatchID:        parts[1],
		SequenceNumber: seq,
		Fingerprint:    parts[3],
	}, nil
}
