package domain

import (
	"fmt"
	"strings"

	"github.com/haukened/fw-dns/internal/dns/common/utils"
)

// Question represents one entry of a DNS question section.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// NewQuestion constructs a Question with a canonicalized name and validates it.
func NewQuestion(name string, rrtype RRType, class RRClass) (Question, error) {
	q := Question{
		Name:  utils.CanonicalDNSName(name),
		Type:  rrtype,
		Class: class,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks whether the Question fields are structurally valid.
func (q Question) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("question name must not be empty")
	}
	for _, label := range strings.Split(q.Name, ".") {
		if len(label) == 0 {
			return fmt.Errorf("question name %q contains an empty label", q.Name)
		}
		if len(label) > 63 {
			return fmt.Errorf("question label %q exceeds 63 octets", label)
		}
	}
	return nil
}
