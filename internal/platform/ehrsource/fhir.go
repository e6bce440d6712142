package ehrsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claimpay/claims-core/internal/config"
	"github.com/claimpay/claims-core/internal/domain/provider"
	"golang.org/x/oauth2/clientcredentials"
)

// FHIRSource fetches billable encounters from a FHIR R4 server. Each
// provider carries its own FHIR base URL; authentication uses a shared
// OAuth2 client-credentials grant with the token cached and refreshed by
// the oauth2 transport.
type FHIRSource struct {
	logger     *slog.Logger
	httpClient *http.Client
}

func NewFHIRSource(logger *slog.Logger, cfg *config.EHRConfig) *FHIRSource {
	httpClient := http.DefaultClient
	if cfg.TokenURL != "" {
		ccCfg := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{"system/Encounter.read", "system/Claim.read"},
		}
		httpClient = ccCfg.Client(context.Background())
	}

	return &FHIRSource{
		logger:     logger,
		httpClient: httpClient,
	}
}

// fhirBundle is the subset of a FHIR searchset bundle the sync needs.
type fhirBundle struct {
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
	Link []struct {
		Relation string `json:"relation"`
		URL      string `json:"url"`
	} `json:"link"`
}

type fhirEncounter struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Subject struct {
		Reference string `json:"reference"`
		Display   string `json:"display"`
	} `json:"subject"`
	Period struct {
		End time.Time `json:"end"`
	} `json:"period"`
	// Billing details carried in a ClaimPay-specific extension block.
	Extension []fhirExtension `json:"extension"`
}

type fhirExtension struct {
	URL         string     `json:"url"`
	ValueMoney  *fhirMoney `json:"valueMoney"`
	ValueString string     `json:"valueString"`
	ValueCode   string     `json:"valueCode"`
}

type fhirMoney struct {
	Value float64 `json:"value"`
}

const (
	extBilledAmount  = "https://claimpay.example/fhir/billed-amount"
	extClinicalNotes = "https://claimpay.example/fhir/clinical-notes"
	extDiagnosisCode = "https://claimpay.example/fhir/diagnosis-code"
	extProcedureCode = "https://claimpay.example/fhir/procedure-code"
)

// FetchNewEncounters queries {base}/Encounter?date=gt{since}&status=finished
// and follows pagination links. Entries that cannot be parsed are skipped
// individually so one malformed resource does not fail the whole provider.
func (s *FHIRSource) FetchNewEncounters(ctx context.Context, p *provider.Provider, since time.Time) ([]Encounter, error) {
	if p.EHRBaseURL == "" {
		return nil, provider.ErrMissingEHRBaseURL
	}

	query := url.Values{}
	query.Set("status", "finished")
	query.Set("date", "gt"+since.UTC().Format(time.RFC3339))
	query.Set("_sort", "date")
	nextURL := strings.TrimRight(p.EHRBaseURL, "/") + "/Encounter?" + query.Encode()

	var encounters []Encounter
	for nextURL != "" {
		bundle, err := s.fetchBundle(ctx, nextURL)
		if err != nil {
			return nil, err
		}

		for _, entry := range bundle.Entry {
			enc, err := parseEncounterResource(entry.Resource)
			if err != nil {
				s.logger.Warn("Skipping unparseable encounter resource",
					"provider_id", p.ID.String(),
					"error", err,
				)
				continue
			}
			encounters = append(encounters, *enc)
		}

		nextURL = ""
		for _, link := range bundle.Link {
			if link.Relation == "next" {
				nextURL = link.URL
				break
			}
		}
	}

	return encounters, nil
}

func (s *FHIRSource) fetchBundle(ctx context.Context, bundleURL string) (*fhirBundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bundleURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create encounter search request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("encounter search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("encounter search returned status %d: %s", resp.StatusCode, string(body))
	}

	var bundle fhirBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode encounter bundle: %w", err)
	}
	return &bundle, nil
}

func parseEncounterResource(raw json.RawMessage) (*Encounter, error) {
	var res fhirEncounter
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal encounter: %w", err)
	}
	if res.ID == "" {
		return nil, fmt.Errorf("encounter resource has no id")
	}
	if res.Subject.Reference == "" {
		return nil, fmt.Errorf("encounter %s has no subject reference", res.ID)
	}

	enc := &Encounter{
		ExternalID:     res.ID,
		PatientRef:     res.Subject.Reference,
		PatientDisplay: res.Subject.Display,
		OccurredAt:     res.Period.End,
	}

	for _, ext := range res.Extension {
		switch ext.URL {
		case extBilledAmount:
			if ext.ValueMoney != nil {
				// FHIR money values are decimal dollars.
				enc.AmountCents = int64(math.Round(ext.ValueMoney.Value * 100))
			}
		case extClinicalNotes:
			enc.Notes = ext.ValueString
		case extDiagnosisCode:
			if ext.ValueCode != "" {
				enc.DiagnosisCodes = append(enc.DiagnosisCodes, ext.ValueCode)
			}
		case extProcedureCode:
			if ext.ValueCode != "" {
				enc.ProcedureCodes = append(enc.ProcedureCodes, ext.ValueCode)
			}
		}
	}

	if enc.AmountCents <= 0 {
		return nil, fmt.Errorf("encounter %s has no billable amount", res.ID)
	}
	return enc, nil
}
