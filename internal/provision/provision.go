// Package provision stores the network credentials handed over during
// first-time setup and guards them with the proof-of-possession password.
package provision

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/eventbus"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

var (
	ErrBadPoP         = errors.New("proof of possession mismatch")
	ErrInvalidRequest = errors.New("invalid provisioning request")
	ErrLocked         = errors.New("too many failed attempts")
)

const (
	// BucketName is the persistent bucket holding node identity and credentials.
	BucketName = "provisioning"

	keyNodeID     = "node_id"
	keySSID       = "ssid"
	keyPassphrase = "passphrase"
	keyFailures   = "failures"

	maxFailures    = 5
	failureWindow  = time.Minute
	servicePrefix  = "PROV_"
	serviceIDChars = 6
)

// Request is a provisioning attempt.
type Request struct {
	PoP        string `json:"pop"`
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
}

// Status describes the provisioning state. The passphrase is never exposed.
type Status struct {
	NodeID      string `json:"node_id"`
	ServiceName string `json:"service_name"`
	Provisioned bool   `json:"provisioned"`
	SSID        string `json:"ssid,omitempty"`
}

// Provisioner owns the node identity and the stored credentials.
type Provisioner struct {
	bucket   kv.Bucket
	attempts kv.Bucket
	bus      *eventbus.Bus
	pop      string
	nodeID   string
}

// New loads the node ID from bucket, generating and storing one on first run.
// Failed attempts are counted in attempts, which may be volatile.
func New(bucket, attempts kv.Bucket, bus *eventbus.Bus, pop string) (*Provisioner, error) {
	nodeID, ok, err := bucket.Get(keyNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load node id: %w", err)
	}
	if !ok {
		nodeID = uuid.NewString()
		if err := bucket.Put(keyNodeID, nodeID, 0); err != nil {
			return nil, fmt.Errorf("failed to store node id: %w", err)
		}
		log.Info().Str("node_id", nodeID).Msg("Generated node id")
	}

	return &Provisioner{
		bucket:   bucket,
		attempts: attempts,
		bus:      bus,
		pop:      pop,
		nodeID:   nodeID,
	}, nil
}

// NodeID returns the persistent node identifier.
func (p *Provisioner) NodeID() string {
	return p.nodeID
}

// ServiceName returns the name advertised during provisioning.
func (p *Provisioner) ServiceName() string {
	return ServiceName(p.nodeID)
}

// ServiceName derives PROV_<first six hex chars> from a node ID.
func ServiceName(nodeID string) string {
	hex := strings.ToUpper(strings.ReplaceAll(nodeID, "-", ""))
	if len(hex) > serviceIDChars {
		hex = hex[:serviceIDChars]
	}
	return servicePrefix + hex
}

// Status reports whether credentials are stored.
func (p *Provisioner) Status() (Status, error) {
	st := Status{NodeID: p.nodeID, ServiceName: p.ServiceName()}

	ssid, ok, err := p.bucket.Get(keySSID)
	if err != nil {
		return st, fmt.Errorf("failed to read ssid: %w", err)
	}
	st.Provisioned = ok
	st.SSID = ssid
	return st, nil
}

// Provision checks the proof of possession and stores the credentials.
func (p *Provisioner) Provision(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	failures, err := p.failures()
	if err != nil {
		return err
	}
	if failures >= maxFailures {
		return ErrLocked
	}

	if subtle.ConstantTimeCompare([]byte(req.PoP), []byte(p.pop)) != 1 {
		n, err := p.attempts.Incr(keyFailures, failureWindow)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to count provisioning failure")
		}
		log.Warn().Int("failures", n).Msg("Provisioning rejected: bad proof of possession")
		return ErrBadPoP
	}

	req.SSID = strings.TrimSpace(req.SSID)
	if req.SSID == "" {
		return fmt.Errorf("%w: ssid is required", ErrInvalidRequest)
	}
	if len(req.SSID) > 32 {
		return fmt.Errorf("%w: ssid longer than 32 bytes", ErrInvalidRequest)
	}
	if len(req.Passphrase) > 64 {
		return fmt.Errorf("%w: passphrase longer than 64 bytes", ErrInvalidRequest)
	}

	if err := p.bucket.Put(keySSID, req.SSID, 0); err != nil {
		return fmt.Errorf("failed to store ssid: %w", err)
	}
	if err := p.bucket.Put(keyPassphrase, req.Passphrase, 0); err != nil {
		return fmt.Errorf("failed to store passphrase: %w", err)
	}
	if _, err := p.attempts.Delete(keyFailures); err != nil {
		log.Warn().Err(err).Msg("Failed to clear provisioning failures")
	}

	log.Info().Str("ssid", req.SSID).Msg("Device provisioned")
	if p.bus != nil {
		p.bus.Publish(eventbus.NewEvent(eventbus.EventTypeProvisioned, "provision", map[string]interface{}{
			"ssid":    req.SSID,
			"node_id": p.nodeID,
		}))
	}
	return nil
}

// Reset forgets the credentials. The node ID survives.
func (p *Provisioner) Reset() error {
	for _, key := range []string{keySSID, keyPassphrase} {
		if _, err := p.bucket.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	if err := p.attempts.Clear(); err != nil {
		return fmt.Errorf("failed to clear attempts: %w", err)
	}
	log.Info().Msg("Provisioning data cleared")
	return nil
}

func (p *Provisioner) failures() (int, error) {
	v, ok, err := p.attempts.Get(keyFailures)
	if err != nil {
		return 0, fmt.Errorf("failed to read failures: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, nil
	}
	return n, nil
}
