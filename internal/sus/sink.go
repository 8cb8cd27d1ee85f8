package sus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/config"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// DefaultRequestTimeout applies when SUS_REQUEST_TIMEOUT is unset.
const DefaultRequestTimeout = 10 * time.Second

type Sink interface {
	Send(ctx context.Context, r Record) error
}

// StatusError is a non-2xx answer from the records endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("records endpoint returned %d: %s", e.Code, e.Body)
}

// HTTPSink POSTs each record as JSON. A circuit breaker stops calls once
// the endpoint keeps failing; client errors (4xx) do not trip it.
type HTTPSink struct {
	client  *http.Client
	url     string
	apiKey  string
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewHTTPSink(cfg config.SUSConfig, log *zap.Logger) *HTTPSink {
	maxFailures := max(cfg.BreakerMaxFailures, 1)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPSink{
		client: &http.Client{Timeout: timeout},
		url:    cfg.TargetURL,
		apiKey: cfg.APIKey,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "sus-records",
			Timeout: cfg.BreakerOpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
			IsSuccessful: func(err error) bool {
				var se *StatusError
				return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (s *HTTPSink) Send(ctx context.Context, r Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})

	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return ErrDuplicate
	}
	return err
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("apikey", s.apiKey)
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type PatientCreator interface {
	ExistsBySUSCard(ctx context.Context, susCard string) (bool, error)
	CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error)
}

// ServiceSink registers records as local patients. The context must carry
// the session the patients are created under.
type ServiceSink struct {
	patients PatientCreator
}

func NewServiceSink(patients PatientCreator) *ServiceSink {
	return &ServiceSink{patients: patients}
}

func (s *ServiceSink) Send(ctx context.Context, r Record) error {
	if r.BirthDate == nil {
		return fmt.Errorf("%w: missing birth_date", ErrInvalidRecord)
	}

	exists, err := s.patients.ExistsBySUSCard(ctx, r.SUSCard)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicate
	}

	_, err = s.patients.CreatePatient(ctx, &patient.CreatePatientCommand{
		Name:             r.Name,
		SUSCard:          r.SUSCard,
		BirthDate:        *r.BirthDate,
		LastConsultation: r.LastConsultation,
	})
	if errors.Is(err, patient.ErrPatientAlreadyExists) {
		return ErrDuplicate
	}
	return err
}
