package sla

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

// policyFile is the on-disk shape of per-tenant overrides:
//
//	tenants:
//	  org-acme:
//	    resolution:
//	      urgent: 6h
//	      low: 72h
type policyFile struct {
	Tenants map[string]struct {
		Resolution map[string]string `yaml:"resolution"`
	} `yaml:"tenants"`
}

// LoadTable reads a YAML policy file. An empty path yields a defaults-only table.
func LoadTable(path string) (*Table, error) {
	table := NewTable()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sla policy: %w", err)
	}
	defer f.Close()
	if err := table.Decode(f); err != nil {
		return nil, fmt.Errorf("load sla policy %s: %w", path, err)
	}
	return table, nil
}

// Decode merges YAML overrides from r into the table.
func (t *Table) Decode(r io.Reader) error {
	var file policyFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return err
	}
	for orgID, tenant := range file.Tenants {
		targets := make(map[domain.TicketPriority]time.Duration, len(tenant.Resolution))
		for rawPriority, rawTarget := range tenant.Resolution {
			priority := domain.TicketPriority(strings.ToLower(strings.TrimSpace(rawPriority)))
			if !priority.Valid() {
				return fmt.Errorf("tenant %s: unknown priority %q", orgID, rawPriority)
			}
			target, err := time.ParseDuration(strings.TrimSpace(rawTarget))
			if err != nil {
				return fmt.Errorf("tenant %s: %s: %w", orgID, rawPriority, err)
			}
			targets[priority] = target
		}
		if err := t.SetResolutionTargets(orgID, targets); err != nil {
			return err
		}
	}
	return nil
}
