package user

import (
	"context"

	"github.com/wichananm65/storefront/internal/form"
	"github.com/wichananm65/storefront/internal/logging"
)

// State is a step of the registration pipeline.
type State int

const (
	Idle State = iota
	Validating
	ValidationFailed
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case ValidationFailed:
		return "validation_failed"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Registrar performs the remote register call. It returns nil only when the
// remote side reports success.
type Registrar interface {
	Register(ctx context.Context, r Registration) error
}

// Outcome is where a submission ended.
type Outcome struct {
	State State
	// Trace lists every state the submission passed through, Idle first.
	Trace []State
	// Errors holds one message per invalid field after ValidationFailed.
	Errors form.Errors
	// Values is what the form re-presents. It is empty after Succeeded.
	Values map[string]string
	// Redirect is the navigation target after Succeeded or Failed.
	Redirect string
	// Err is the registrar's error after Failed.
	Err error
}

// Pipeline drives one registration submission from validation to the
// navigation decision.
type Pipeline struct {
	registrar    Registrar
	gate         *form.Gate
	loginPath    string
	registerPath string
	log          logging.Logger
}

func NewPipeline(registrar Registrar, gate *form.Gate, loginPath, registerPath string, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{
		registrar:    registrar,
		gate:         gate,
		loginPath:    loginPath,
		registerPath: registerPath,
		log:          log.With("component", "registration"),
	}
}

// Submit runs r through the pipeline. The registrar is called at most once.
// While a submission with the same formID is running, Submit returns
// form.ErrSubmissionInProgress and does nothing else. Without a formID the
// email identifies the submission.
func (p *Pipeline) Submit(ctx context.Context, formID string, r Registration) (Outcome, error) {
	release, ok := p.gate.Enter(form.SubmissionKey(formID, "register", r.Email))
	if !ok {
		return Outcome{State: Idle, Trace: []State{Idle}}, form.ErrSubmissionInProgress
	}
	defer release()

	out := Outcome{Trace: []State{Idle}}
	move := func(s State) {
		out.State = s
		out.Trace = append(out.Trace, s)
	}

	move(Validating)
	if errs := RegistrationSchema.Validate(r.Values()); len(errs) > 0 {
		move(ValidationFailed)
		out.Errors = errs
		out.Values = r.Redisplay()
		return out, nil
	}

	move(Submitting)
	if err := p.registrar.Register(ctx, r); err != nil {
		p.log.Warn(ctx, "registration failed", "email", r.Email, "error", err)
		move(Failed)
		out.Err = err
		out.Redirect = p.registerPath
		return out, nil
	}

	p.log.Info(ctx, "registration succeeded", "email", r.Email)
	move(Succeeded)
	out.Values = map[string]string{}
	out.Redirect = p.loginPath
	return out, nil
}
