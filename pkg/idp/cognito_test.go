package idp

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/go-identity/sso-broker/pkg/core"
)

// fakeCognito is a scriptable CognitoAPI.
type fakeCognito struct {
	initiateOut *cognito.AdminInitiateAuthOutput
	initiateErr error
	respondOut  *cognito.AdminRespondToAuthChallengeOutput
	respondErr  error
	describeOut *cognito.DescribeUserPoolClientOutput
	describeErr error
	getUserOut  *cognito.GetUserOutput
	getUserErr  error

	lastInitiate *cognito.AdminInitiateAuthInput
	lastRespond  *cognito.AdminRespondToAuthChallengeInput
}

func (f *fakeCognito) AdminInitiateAuth(_ context.Context, params *cognito.AdminInitiateAuthInput,
	_ ...func(*cognito.Options)) (*cognito.AdminInitiateAuthOutput, error) {
	f.lastInitiate = params
	return f.initiateOut, f.initiateErr
}

func (f *fakeCognito) AdminRespondToAuthChallenge(_ context.Context, params *cognito.AdminRespondToAuthChallengeInput,
	_ ...func(*cognito.Options)) (*cognito.AdminRespondToAuthChallengeOutput, error) {
	f.lastRespond = params
	return f.respondOut, f.respondErr
}

func (f *fakeCognito) DescribeUserPoolClient(_ context.Context, _ *cognito.DescribeUserPoolClientInput,
	_ ...func(*cognito.Options)) (*cognito.DescribeUserPoolClientOutput, error) {
	return f.describeOut, f.describeErr
}

func (f *fakeCognito) GetUser(_ context.Context, _ *cognito.GetUserInput,
	_ ...func(*cognito.Options)) (*cognito.GetUserOutput, error) {
	return f.getUserOut, f.getUserErr
}

func authResult() *types.AuthenticationResultType {
	return &types.AuthenticationResultType{
		AccessToken:  aws.String("at"),
		IdToken:      aws.String("it"),
		RefreshToken: aws.String("rt"),
		ExpiresIn:    3600,
		TokenType:    aws.String("Bearer"),
	}
}

func TestCognitoGateway_PrimaryLogin(t *testing.T) {
	fake := &fakeCognito{
		initiateOut: &cognito.AdminInitiateAuthOutput{AuthenticationResult: authResult()},
	}
	gw := NewCognitoGateway(fake, "pool_123")

	outcome, err := gw.PrimaryLogin(context.Background(), "client_123", "alice", "secret")
	if err != nil {
		t.Fatalf("PrimaryLogin() error = %v", err)
	}
	if outcome.Challenge != "" {
		t.Errorf("PrimaryLogin() challenge = %q, want none", outcome.Challenge)
	}
	if got := core.NormalizeTokens(outcome.Tokens); got.AccessToken != "at" || got.ExpiresIn != 3600 {
		t.Errorf("PrimaryLogin() tokens normalize to %+v", got)
	}
	if fake.lastInitiate.AuthFlow != types.AuthFlowTypeAdminUserPasswordAuth {
		t.Errorf("PrimaryLogin() auth flow = %v", fake.lastInitiate.AuthFlow)
	}
	if fake.lastInitiate.AuthParameters["USERNAME"] != "alice" {
		t.Errorf("PrimaryLogin() USERNAME = %q", fake.lastInitiate.AuthParameters["USERNAME"])
	}
}

func TestCognitoGateway_PrimaryLoginPendingChallenge(t *testing.T) {
	fake := &fakeCognito{
		initiateOut: &cognito.AdminInitiateAuthOutput{ChallengeName: types.ChallengeNameTypeSmsMfa},
	}
	gw := NewCognitoGateway(fake, "pool_123")

	outcome, err := gw.PrimaryLogin(context.Background(), "client_123", "alice", "secret")
	if err != nil {
		t.Fatalf("PrimaryLogin() error = %v", err)
	}
	if outcome.Challenge != string(types.ChallengeNameTypeSmsMfa) {
		t.Errorf("PrimaryLogin() challenge = %q, want %q", outcome.Challenge, types.ChallengeNameTypeSmsMfa)
	}
}

func TestCognitoGateway_CustomChallengeExchange(t *testing.T) {
	fake := &fakeCognito{
		initiateOut: &cognito.AdminInitiateAuthOutput{
			ChallengeName: types.ChallengeNameTypeCustomChallenge,
			Session:       aws.String("session-blob"),
		},
		respondOut: &cognito.AdminRespondToAuthChallengeOutput{AuthenticationResult: authResult()},
	}
	gw := NewCognitoGateway(fake, "pool_123")

	outcome, err := gw.CustomChallengeExchange(context.Background(), "client_123", "alice", "session-access-token")
	if err != nil {
		t.Fatalf("CustomChallengeExchange() error = %v", err)
	}
	if outcome.Challenge != "" {
		t.Errorf("CustomChallengeExchange() challenge = %q, want none", outcome.Challenge)
	}

	if fake.lastInitiate.AuthFlow != types.AuthFlowTypeCustomAuth {
		t.Errorf("exchange auth flow = %v", fake.lastInitiate.AuthFlow)
	}
	if aws.ToString(fake.lastRespond.Session) != "session-blob" {
		t.Errorf("challenge response session = %q", aws.ToString(fake.lastRespond.Session))
	}
	if fake.lastRespond.ChallengeResponses["ANSWER"] != "session-access-token" {
		t.Errorf("challenge answer = %q", fake.lastRespond.ChallengeResponses["ANSWER"])
	}
}

func TestCognitoGateway_TranslatesVerifierFault(t *testing.T) {
	fake := &fakeCognito{
		initiateErr: &types.UserLambdaValidationException{Message: aws.String("Invalid token")},
	}
	gw := NewCognitoGateway(fake, "pool_123")

	_, err := gw.PrimaryLogin(context.Background(), "client_123", "alice", "secret")
	var verifierErr *core.ChallengeVerifierError
	if !errors.As(err, &verifierErr) {
		t.Fatalf("PrimaryLogin() error = %v, want ChallengeVerifierError", err)
	}
	if verifierErr.Message != "Invalid token" {
		t.Errorf("verifier fault message = %q, want %q", verifierErr.Message, "Invalid token")
	}
	if !errors.Is(err, core.ErrUpstream) {
		t.Error("a verifier fault should classify as an upstream failure")
	}
}

func TestCognitoGateway_TranslatesGenericError(t *testing.T) {
	fake := &fakeCognito{initiateErr: errors.New("throttled")}
	gw := NewCognitoGateway(fake, "pool_123")

	_, err := gw.Refresh(context.Background(), "client_123", "rt")
	if !errors.Is(err, core.ErrUpstream) {
		t.Errorf("Refresh() error = %v, want ErrUpstream", err)
	}
}

func TestCognitoGateway_Introspect(t *testing.T) {
	fake := &fakeCognito{getUserOut: &cognito.GetUserOutput{Username: aws.String("alice")}}
	gw := NewCognitoGateway(fake, "pool_123")

	subject, err := gw.Introspect(context.Background(), "at")
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	if subject != "alice" {
		t.Errorf("Introspect() = %q, want %q", subject, "alice")
	}

	fake.getUserOut = nil
	fake.getUserErr = &types.NotAuthorizedException{Message: aws.String("Access Token has been revoked")}
	if _, err := gw.Introspect(context.Background(), "at"); !errors.Is(err, core.ErrUpstream) {
		t.Errorf("Introspect() error = %v, want ErrUpstream", err)
	}
}

func TestCognitoGateway_ValidateClient(t *testing.T) {
	tests := []struct {
		name        string
		fake        *fakeCognito
		redirectURI string
		wantValid   bool
		wantMessage string
	}{
		{
			name: "registered callback",
			fake: &fakeCognito{describeOut: &cognito.DescribeUserPoolClientOutput{
				UserPoolClient: &types.UserPoolClientType{
					CallbackURLs: []string{"https://app.example.com/callback"},
				},
			}},
			redirectURI: "https://app.example.com/callback",
			wantValid:   true,
		},
		{
			name: "callback match is case-insensitive",
			fake: &fakeCognito{describeOut: &cognito.DescribeUserPoolClientOutput{
				UserPoolClient: &types.UserPoolClientType{
					CallbackURLs: []string{"https://App.Example.com/Callback"},
				},
			}},
			redirectURI: "https://app.example.com/callback",
			wantValid:   true,
		},
		{
			name: "unregistered callback",
			fake: &fakeCognito{describeOut: &cognito.DescribeUserPoolClientOutput{
				UserPoolClient: &types.UserPoolClientType{
					CallbackURLs: []string{"https://app.example.com/callback"},
				},
			}},
			redirectURI: "https://evil.example.com/",
			wantMessage: "Invalid RedirectUri for Client",
		},
		{
			name:        "unknown client",
			fake:        &fakeCognito{describeErr: &types.ResourceNotFoundException{Message: aws.String("no such client")}},
			redirectURI: "https://app.example.com/callback",
			wantMessage: "Invalid Client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewCognitoGateway(tt.fake, "pool_123")

			check, err := gw.ValidateClient(context.Background(), "client_123", tt.redirectURI)
			if err != nil {
				t.Fatalf("ValidateClient() error = %v", err)
			}
			if check.Valid != tt.wantValid {
				t.Errorf("ValidateClient() valid = %v, want %v", check.Valid, tt.wantValid)
			}
			if check.Message != tt.wantMessage {
				t.Errorf("ValidateClient() message = %q, want %q", check.Message, tt.wantMessage)
			}
		})
	}
}
