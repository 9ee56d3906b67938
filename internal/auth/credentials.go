package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/guanago/guanago/internal/airtable"
	"github.com/guanago/guanago/pkg/crypto"
	"github.com/guanago/guanago/pkg/logger"
	"github.com/guanago/guanago/pkg/metrics"
)

// DefaultScanLimit bounds the bulk fallback scan over remote credentials.
const DefaultScanLimit = 100

// DefaultAdminTable is the remote table holding admin credentials.
const DefaultAdminTable = "Admins"

var (
	// ErrEmptyPIN rejects empty or whitespace-only input before any lookup.
	ErrEmptyPIN = errors.New("auth: pin is empty")
	// ErrPINNotMatched is the terminal negative result of the validation chain.
	ErrPINNotMatched = errors.New("auth: pin not matched")
)

// AdminCredential identifies an administrator. PIN holds the stored secret:
// either the plain value (as the remote table stores it) or a bcrypt hash
// for static break-glass accounts.
type AdminCredential struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PIN         string `json:"-"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
}

// strategy is one ordered attempt in the validation chain. A nil credential
// with a nil error means "no match here, try the next strategy"; errors are
// logged by the validator and likewise continue the chain.
type strategy interface {
	Name() string
	Attempt(ctx context.Context, pin string) (*AdminCredential, error)
}

// ValidatorConfig describes the chain composition.
type ValidatorConfig struct {
	Static    []AdminCredential
	Remote    *airtable.Client
	Table     string
	ScanLimit int
}

// Validator runs the PIN validation chain: static credentials first, then a
// remote exact-match query, then a bounded scan of active remote records.
// The chain always terminates in a matched credential or ErrPINNotMatched;
// remote failures never surface to the caller.
type Validator struct {
	strategies []strategy
	log        *zap.Logger
}

// NewValidator builds the chain. Static credentials are copied and verified
// for duplicate PINs; remote strategies are appended only when the client is
// present (an unconfigured client still short-circuits at attempt time).
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	static, err := newStaticStrategy(cfg.Static)
	if err != nil {
		return nil, err
	}

	strategies := []strategy{static}

	if cfg.Remote != nil {
		table := strings.TrimSpace(cfg.Table)
		if table == "" {
			table = DefaultAdminTable
		}
		limit := cfg.ScanLimit
		if limit <= 0 {
			limit = DefaultScanLimit
		}
		strategies = append(strategies,
			&remoteQueryStrategy{client: cfg.Remote, table: table},
			&remoteScanStrategy{client: cfg.Remote, table: table, limit: limit},
		)
	}

	return &Validator{
		strategies: strategies,
		log:        logger.WithModule("auth"),
	}, nil
}

// ValidatePIN resolves the supplied PIN to a credential. The only errors are
// ErrEmptyPIN for blank input and ErrPINNotMatched when every strategy has
// been exhausted.
func (v *Validator) ValidatePIN(ctx context.Context, rawPIN string) (*AdminCredential, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pin := strings.TrimSpace(rawPIN)
	if pin == "" {
		return nil, ErrEmptyPIN
	}

	for _, s := range v.strategies {
		credential, err := s.Attempt(ctx, pin)
		if err != nil {
			v.log.Warn("credential strategy failed, continuing chain",
				zap.String("strategy", s.Name()),
				zap.Error(err),
			)
			continue
		}
		if credential != nil {
			metrics.PINStrategyMatches.WithLabelValues(s.Name()).Inc()
			metrics.PINAttempts.WithLabelValues("success").Inc()
			return credential, nil
		}
	}

	metrics.PINAttempts.WithLabelValues("failure").Inc()
	return nil, ErrPINNotMatched
}

// staticStrategy checks the fixed in-process credential set. It exists so
// operators keep admin access while the remote table is unreachable, which
// is why it runs before anything that touches the network.
type staticStrategy struct {
	credentials []AdminCredential
}

func newStaticStrategy(credentials []AdminCredential) (*staticStrategy, error) {
	cleaned := make([]AdminCredential, 0, len(credentials))
	seen := make(map[string]struct{}, len(credentials))

	for i, credential := range credentials {
		credential.ID = strings.TrimSpace(credential.ID)
		credential.DisplayName = strings.TrimSpace(credential.DisplayName)
		credential.Email = strings.TrimSpace(credential.Email)
		credential.PIN = strings.TrimSpace(credential.PIN)
		credential.Role = strings.TrimSpace(credential.Role)

		if credential.PIN == "" {
			return nil, fmt.Errorf("auth: static credential %d has an empty pin", i)
		}
		if credential.ID == "" {
			credential.ID = fmt.Sprintf("static-%d", i+1)
		}
		if credential.Role == "" {
			credential.Role = "admin"
		}

		// Hashed PINs cannot be compared against each other, so uniqueness
		// is enforced on the stored value.
		if _, dup := seen[credential.PIN]; dup {
			return nil, fmt.Errorf("auth: duplicate static pin for credential %q", credential.ID)
		}
		seen[credential.PIN] = struct{}{}

		cleaned = append(cleaned, credential)
	}

	return &staticStrategy{credentials: cleaned}, nil
}

func (s *staticStrategy) Name() string { return "static" }

func (s *staticStrategy) Attempt(_ context.Context, pin string) (*AdminCredential, error) {
	for i := range s.credentials {
		credential := s.credentials[i]
		if credential.Active && crypto.VerifyPIN(credential.PIN, pin) {
			return &credential, nil
		}
	}
	return nil, nil
}

// remoteQueryStrategy asks the remote table for an exact active match,
// limited to one record. Formula evaluation quirks (a PIN stored as a number
// fails a string comparison) make a clean empty result inconclusive, so the
// chain falls through to the scan either way.
type remoteQueryStrategy struct {
	client *airtable.Client
	table  string
}

func (s *remoteQueryStrategy) Name() string { return "remote_query" }

func (s *remoteQueryStrategy) Attempt(ctx context.Context, pin string) (*AdminCredential, error) {
	if !s.client.Configured() {
		return nil, nil
	}

	formula := fmt.Sprintf("AND({Pin} = %s, {Activo} = TRUE())", airtable.QuoteFormulaString(pin))
	records, err := s.client.ListRecords(ctx, s.table, airtable.ListOptions{
		FilterByFormula: formula,
		MaxRecords:      1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	credential := credentialFromRecord(records[0])
	return &credential, nil
}

// remoteScanStrategy fetches active records in bulk and compares PINs after
// string coercion and trimming on both sides.
type remoteScanStrategy struct {
	client *airtable.Client
	table  string
	limit  int
}

func (s *remoteScanStrategy) Name() string { return "remote_scan" }

func (s *remoteScanStrategy) Attempt(ctx context.Context, pin string) (*AdminCredential, error) {
	if !s.client.Configured() {
		return nil, nil
	}

	records, err := s.client.ListRecords(ctx, s.table, airtable.ListOptions{
		FilterByFormula: "{Activo} = TRUE()",
		MaxRecords:      s.limit,
	})
	if err != nil {
		return nil, err
	}

	for _, record := range records {
		stored := strings.TrimSpace(record.StringField("Pin", "PIN", "pin"))
		if stored != "" && stored == pin {
			credential := credentialFromRecord(record)
			return &credential, nil
		}
	}

	return nil, nil
}

func credentialFromRecord(record airtable.Record) AdminCredential {
	role := record.StringField("Rol", "rol", "Role", "role")
	if role == "" {
		role = "admin"
	}

	return AdminCredential{
		ID:          record.ID,
		DisplayName: record.StringField("Nombre", "nombre", "Name", "name"),
		Email:       record.StringField("Email", "email", "Correo", "correo"),
		PIN:         strings.TrimSpace(record.StringField("Pin", "PIN", "pin")),
		Role:        role,
		Active:      true,
	}
}
