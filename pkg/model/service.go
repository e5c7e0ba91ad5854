package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/travigo/busdelay/pkg/util"
	"golang.org/x/exp/slices"
)

// ServiceID identifies a Service in the remote directory. The directory may
// hand it out as a JSON number or a string, so both are accepted.
type ServiceID string

func (id ServiceID) String() string {
	return string(id)
}

// IsNumeric reports whether the id is made only of digits
func (id ServiceID) IsNumeric() bool {
	if id == "" {
		return false
	}
	_, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil
}

// MarshalJSON writes numeric ids as JSON integers ("007" becomes 7) and
// everything else as strings
func (id ServiceID) MarshalJSON() ([]byte, error) {
	if parsed, err := strconv.ParseUint(string(id), 10, 64); err == nil {
		return strconv.AppendUint(nil, parsed, 10), nil
	}

	return json.Marshal(string(id))
}

func (id *ServiceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ServiceID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("service id: %w", err)
	}
	*id = ServiceID(n.String())

	return nil
}

type Service struct {
	ID          ServiceID `json:"id" groups:"basic"`
	Number      string    `json:"number" groups:"basic"`
	Description string    `json:"description" groups:"basic"`
	Origin      string    `json:"origin" groups:"basic"`
	Destination string    `json:"destination" groups:"basic"`
}

// Label is the text shown for the service in a selector, eg. "42: Town - Mill"
func (s Service) Label() string {
	return fmt.Sprintf("%s: %s", s.Number, s.Description)
}

// FillEndpoints derives a missing origin/destination from a "Origin - Destination" description
func (s *Service) FillEndpoints() {
	if s.Origin != "" && s.Destination != "" {
		return
	}

	parts := strings.SplitN(s.Description, "-", 2)
	if len(parts) != 2 {
		return
	}

	if s.Origin == "" {
		s.Origin = strings.TrimSpace(parts[0])
	}
	if s.Destination == "" {
		s.Destination = strings.TrimSpace(parts[1])
	}
}

func ServiceLabels(services []Service) []string {
	labels := make([]string, 0, len(services))
	for _, service := range services {
		labels = append(labels, service.Label())
	}

	return labels
}

// FindServiceByLabel returns the first service whose Label matches
func FindServiceByLabel(services []Service, label string) (Service, bool) {
	index := slices.IndexFunc(services, func(s Service) bool {
		return s.Label() == label
	})
	if index < 0 {
		return Service{}, false
	}

	return services[index], true
}

// SortServicesByNumber orders services by the numeric value of their route number.
// Numbers without leading digits sort after numeric ones, ties keep their order.
func SortServicesByNumber(services []Service) {
	slices.SortStableFunc(services, func(a, b Service) int {
		an, aok := util.LeadingNumber(a.Number)
		bn, bok := util.LeadingNumber(b.Number)

		switch {
		case aok && bok:
			return an - bn
		case aok:
			return -1
		case bok:
			return 1
		default:
			return strings.Compare(a.Number, b.Number)
		}
	})
}
