package idp

import (
	"context"
	"fmt"

	"github.com/go-identity/sso-broker/pkg/core"
)

// CustomChallenge is the challenge name used by the trust-handoff handshake.
const CustomChallenge = "CUSTOM_CHALLENGE"

// Trigger sources dispatched by Handle.
const (
	TriggerDefineChallenge = "DefineAuthChallenge_Authentication"
	TriggerCreateChallenge = "CreateAuthChallenge_Authentication"
	TriggerVerifyChallenge = "VerifyAuthChallengeResponse_Authentication"
)

// The challenge content carries no security value: the real check happens
// when the answer token is introspected in the verify round.
const (
	challengeQuestion = "TheQuestion"
	challengeAnswer   = "TheAnswer"
	challengeMetadata = "TOKEN_CHALLENGE"
)

// ChallengeRound is one completed round of the IdP's auth session.
type ChallengeRound struct {
	ChallengeName     string `json:"challengeName"`
	ChallengeResult   bool   `json:"challengeResult"`
	ChallengeMetadata string `json:"challengeMetadata,omitempty"`
}

// ChallengeRequest is the request half of a challenge trigger event.
type ChallengeRequest struct {
	ChallengeName   string           `json:"challengeName,omitempty"`
	ChallengeAnswer string           `json:"challengeAnswer,omitempty"`
	Session         []ChallengeRound `json:"session"`
}

// ChallengeResponse is the response half of a challenge trigger event,
// filled in by the handlers.
type ChallengeResponse struct {
	ChallengeName              string            `json:"challengeName,omitempty"`
	IssueTokens                bool              `json:"issueTokens"`
	FailAuthentication         bool              `json:"failAuthentication"`
	PublicChallengeParameters  map[string]string `json:"publicChallengeParameters,omitempty"`
	PrivateChallengeParameters map[string]string `json:"privateChallengeParameters,omitempty"`
	ChallengeMetadata          string            `json:"challengeMetadata,omitempty"`
	AnswerCorrect              bool              `json:"answerCorrect"`
}

// ChallengeEvent mirrors the IdP's auth trigger payload.
type ChallengeEvent struct {
	TriggerSource string            `json:"triggerSource"`
	UserName      string            `json:"userName"`
	Request       ChallengeRequest  `json:"request"`
	Response      ChallengeResponse `json:"response"`
}

// ChallengeVerifier adjudicates the verify round. The broker implements it
// by introspecting the answer token against the expected subject.
type ChallengeVerifier interface {
	VerifyAuthChallenge(ctx context.Context, expectedUsername, accessToken string) bool
}

// Triggers implements the IdP-side callbacks of the custom auth flow.
type Triggers struct {
	verifier ChallengeVerifier
}

// NewTriggers creates the trigger handlers with the given verifier.
func NewTriggers(verifier ChallengeVerifier) *Triggers {
	return &Triggers{verifier: verifier}
}

// Handle dispatches a trigger event to the matching handler.
func (t *Triggers) Handle(ctx context.Context, event *ChallengeEvent) (*ChallengeEvent, error) {
	logger := core.LoggerFromCtx(ctx)
	logger.Debug("challenge trigger received", "trigger_source", event.TriggerSource, "user", event.UserName)

	switch event.TriggerSource {
	case TriggerDefineChallenge:
		return t.OnDefineChallenge(ctx, event), nil
	case TriggerCreateChallenge:
		return t.OnCreateChallenge(ctx, event), nil
	case TriggerVerifyChallenge:
		return t.OnVerifyChallenge(ctx, event), nil
	default:
		return nil, fmt.Errorf("%w: unsupported trigger source %q", core.ErrValidation, event.TriggerSource)
	}
}

// OnDefineChallenge drives the handshake state machine: an empty session
// asks for the custom challenge, a session whose single prior round was the
// custom challenge answered correctly issues tokens, anything else fails
// authentication.
func (t *Triggers) OnDefineChallenge(_ context.Context, event *ChallengeEvent) *ChallengeEvent {
	session := event.Request.Session
	switch {
	case len(session) == 0:
		event.Response.IssueTokens = false
		event.Response.FailAuthentication = false
		event.Response.ChallengeName = CustomChallenge
	case len(session) == 1 && session[0].ChallengeName == CustomChallenge && session[0].ChallengeResult:
		event.Response.IssueTokens = true
		event.Response.FailAuthentication = false
	default:
		event.Response.IssueTokens = false
		event.Response.FailAuthentication = true
	}
	return event
}

// OnCreateChallenge emits the fixed, non-secret challenge parameters. The
// challenge needs no preparation; the verify round does all the work.
func (t *Triggers) OnCreateChallenge(_ context.Context, event *ChallengeEvent) *ChallengeEvent {
	if event.Request.ChallengeName != CustomChallenge {
		return event
	}
	event.Response.PublicChallengeParameters = map[string]string{"question": challengeQuestion}
	event.Response.PrivateChallengeParameters = map[string]string{"answer": challengeAnswer}
	event.Response.ChallengeMetadata = challengeMetadata
	return event
}

// OnVerifyChallenge marks the answer correct iff the access token supplied
// as the challenge answer introspects to the event's user name.
func (t *Triggers) OnVerifyChallenge(ctx context.Context, event *ChallengeEvent) *ChallengeEvent {
	event.Response.AnswerCorrect = t.verifier.VerifyAuthChallenge(ctx, event.UserName, event.Request.ChallengeAnswer)
	return event
}
