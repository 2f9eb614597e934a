package idp

import (
	"context"
	"errors"
	"testing"

	"github.com/go-identity/sso-broker/pkg/core"
)

type staticVerifier struct {
	expectedToken string
}

func (v staticVerifier) VerifyAuthChallenge(_ context.Context, expectedUsername, accessToken string) bool {
	return expectedUsername == "alice" && accessToken == v.expectedToken
}

func TestTriggers_OnDefineChallenge(t *testing.T) {
	tests := []struct {
		name          string
		session       []ChallengeRound
		wantIssue     bool
		wantFail      bool
		wantChallenge string
	}{
		{
			name:          "empty session requests the custom challenge",
			session:       nil,
			wantChallenge: CustomChallenge,
		},
		{
			name: "correct answer issues tokens",
			session: []ChallengeRound{
				{ChallengeName: CustomChallenge, ChallengeResult: true},
			},
			wantIssue: true,
		},
		{
			name: "wrong answer fails authentication",
			session: []ChallengeRound{
				{ChallengeName: CustomChallenge, ChallengeResult: false},
			},
			wantFail: true,
		},
		{
			name: "foreign challenge in session fails authentication",
			session: []ChallengeRound{
				{ChallengeName: "SMS_MFA", ChallengeResult: true},
			},
			wantFail: true,
		},
		{
			name: "more than one round fails authentication",
			session: []ChallengeRound{
				{ChallengeName: CustomChallenge, ChallengeResult: true},
				{ChallengeName: CustomChallenge, ChallengeResult: true},
			},
			wantFail: true,
		},
	}

	triggers := NewTriggers(staticVerifier{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &ChallengeEvent{
				TriggerSource: TriggerDefineChallenge,
				UserName:      "alice",
				Request:       ChallengeRequest{Session: tt.session},
			}

			got := triggers.OnDefineChallenge(context.Background(), event)
			if got.Response.IssueTokens != tt.wantIssue {
				t.Errorf("IssueTokens = %v, want %v", got.Response.IssueTokens, tt.wantIssue)
			}
			if got.Response.FailAuthentication != tt.wantFail {
				t.Errorf("FailAuthentication = %v, want %v", got.Response.FailAuthentication, tt.wantFail)
			}
			if got.Response.ChallengeName != tt.wantChallenge {
				t.Errorf("ChallengeName = %q, want %q", got.Response.ChallengeName, tt.wantChallenge)
			}
		})
	}
}

func TestTriggers_OnCreateChallenge(t *testing.T) {
	triggers := NewTriggers(staticVerifier{})

	event := &ChallengeEvent{
		TriggerSource: TriggerCreateChallenge,
		Request:       ChallengeRequest{ChallengeName: CustomChallenge},
	}
	got := triggers.OnCreateChallenge(context.Background(), event)
	if got.Response.PublicChallengeParameters["question"] != challengeQuestion {
		t.Errorf("question = %q, want %q", got.Response.PublicChallengeParameters["question"], challengeQuestion)
	}
	if got.Response.PrivateChallengeParameters["answer"] != challengeAnswer {
		t.Errorf("answer = %q, want %q", got.Response.PrivateChallengeParameters["answer"], challengeAnswer)
	}
	if got.Response.ChallengeMetadata != challengeMetadata {
		t.Errorf("metadata = %q, want %q", got.Response.ChallengeMetadata, challengeMetadata)
	}

	other := &ChallengeEvent{
		TriggerSource: TriggerCreateChallenge,
		Request:       ChallengeRequest{ChallengeName: "SMS_MFA"},
	}
	got = triggers.OnCreateChallenge(context.Background(), other)
	if got.Response.PublicChallengeParameters != nil || got.Response.ChallengeMetadata != "" {
		t.Error("foreign challenges must pass through untouched")
	}
}

func TestTriggers_OnVerifyChallenge(t *testing.T) {
	triggers := NewTriggers(staticVerifier{expectedToken: "valid-token"})

	tests := []struct {
		name     string
		userName string
		answer   string
		want     bool
	}{
		{"token belongs to the user", "alice", "valid-token", true},
		{"token belongs to someone else", "mallory", "valid-token", false},
		{"unknown token", "alice", "stolen-token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &ChallengeEvent{
				TriggerSource: TriggerVerifyChallenge,
				UserName:      tt.userName,
				Request:       ChallengeRequest{ChallengeAnswer: tt.answer},
			}
			got := triggers.OnVerifyChallenge(context.Background(), event)
			if got.Response.AnswerCorrect != tt.want {
				t.Errorf("AnswerCorrect = %v, want %v", got.Response.AnswerCorrect, tt.want)
			}
		})
	}
}

func TestTriggers_Handle(t *testing.T) {
	triggers := NewTriggers(staticVerifier{expectedToken: "valid-token"})
	ctx := context.Background()

	event := &ChallengeEvent{
		TriggerSource: TriggerDefineChallenge,
		UserName:      "alice",
	}
	got, err := triggers.Handle(ctx, event)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got.Response.ChallengeName != CustomChallenge {
		t.Errorf("Handle() challenge = %q, want %q", got.Response.ChallengeName, CustomChallenge)
	}

	_, err = triggers.Handle(ctx, &ChallengeEvent{TriggerSource: "PreSignUp_SignUp"})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Handle() error = %v, want ErrValidation", err)
	}
}
