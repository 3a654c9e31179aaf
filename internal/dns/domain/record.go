package domain

import (
	"fmt"

	"github.com/haukened/fw-dns/internal/dns/common/utils"
)

// ResourceRecord represents a DNS resource record.
// Data carries the wire-encoded RDATA verbatim; this server forwards
// records without interpreting their type-specific payload.
type ResourceRecord struct {
	Name  string
	Type  RRType
	Class RRClass
	TTL   uint32
	Data  []byte
}

// NewResourceRecord constructs a ResourceRecord with a canonicalized name
// and validates it.
func NewResourceRecord(name string, rrtype RRType, class RRClass, ttl uint32, data []byte) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name:  utils.CanonicalDNSName(name),
		Type:  rrtype,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}

// Validate checks whether the ResourceRecord fields are structurally valid.
// Unknown record types are accepted because RDATA is opaque passthrough.
func (rr ResourceRecord) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if len(rr.Data) > 0xFFFF {
		return fmt.Errorf("record data %d bytes exceeds the 16-bit RDLENGTH limit", len(rr.Data))
	}
	return nil
}
