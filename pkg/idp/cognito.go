// Package idp implements the identity provider gateway and the IdP-side
// custom-challenge verifier callbacks.
package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/go-identity/sso-broker/pkg/core"
)

// CognitoAPI defines the Cognito operations used by the gateway, enabling
// mock injection for testing.
type CognitoAPI interface {
	AdminInitiateAuth(ctx context.Context, params *cognito.AdminInitiateAuthInput,
		optFns ...func(*cognito.Options)) (*cognito.AdminInitiateAuthOutput, error)
	AdminRespondToAuthChallenge(ctx context.Context, params *cognito.AdminRespondToAuthChallengeInput,
		optFns ...func(*cognito.Options)) (*cognito.AdminRespondToAuthChallengeOutput, error)
	DescribeUserPoolClient(ctx context.Context, params *cognito.DescribeUserPoolClientInput,
		optFns ...func(*cognito.Options)) (*cognito.DescribeUserPoolClientOutput, error)
	GetUser(ctx context.Context, params *cognito.GetUserInput,
		optFns ...func(*cognito.Options)) (*cognito.GetUserOutput, error)
}

// CognitoGateway implements core.IdentityProvider against a Cognito user pool.
type CognitoGateway struct {
	client     CognitoAPI
	userPoolID string
}

// NewCognitoGateway creates a gateway for the given user pool.
func NewCognitoGateway(client CognitoAPI, userPoolID string) *CognitoGateway {
	return &CognitoGateway{client: client, userPoolID: userPoolID}
}

// NewCognitoGatewayFromConfig loads the default AWS configuration and
// creates a gateway for the given user pool.
func NewCognitoGatewayFromConfig(ctx context.Context, userPoolID string) (*CognitoGateway, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewCognitoGateway(cognito.NewFromConfig(cfg), userPoolID), nil
}

// PrimaryLogin authenticates with username/password through the admin auth flow.
func (g *CognitoGateway) PrimaryLogin(ctx context.Context, clientID, username, password string) (*core.AuthOutcome, error) {
	out, err := g.client.AdminInitiateAuth(ctx, &cognito.AdminInitiateAuthInput{
		UserPoolId: aws.String(g.userPoolID),
		ClientId:   aws.String(clientID),
		AuthFlow:   types.AuthFlowTypeAdminUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, translateErr("admin initiate auth", err)
	}
	return outcomeFromAuth(out.AuthenticationResult, string(out.ChallengeName))
}

// CustomChallengeExchange runs the two-round custom auth handshake: the
// first call obtains the custom challenge, the second answers it with the
// session access token.
func (g *CognitoGateway) CustomChallengeExchange(ctx context.Context, clientID, username, accessToken string) (*core.AuthOutcome, error) {
	initiated, err := g.client.AdminInitiateAuth(ctx, &cognito.AdminInitiateAuthInput{
		UserPoolId: aws.String(g.userPoolID),
		ClientId:   aws.String(clientID),
		AuthFlow:   types.AuthFlowTypeCustomAuth,
		AuthParameters: map[string]string{
			"USERNAME": username,
		},
	})
	if err != nil {
		return nil, translateErr("initiate custom auth", err)
	}

	answered, err := g.client.AdminRespondToAuthChallenge(ctx, &cognito.AdminRespondToAuthChallengeInput{
		UserPoolId:    aws.String(g.userPoolID),
		ClientId:      aws.String(clientID),
		ChallengeName: initiated.ChallengeName,
		ChallengeResponses: map[string]string{
			"USERNAME": username,
			"ANSWER":   accessToken,
		},
		Session: initiated.Session,
	})
	if err != nil {
		return nil, translateErr("respond to auth challenge", err)
	}
	return outcomeFromAuth(answered.AuthenticationResult, string(answered.ChallengeName))
}

// Refresh issues fresh tokens from a refresh token.
func (g *CognitoGateway) Refresh(ctx context.Context, clientID, refreshToken string) (*core.AuthOutcome, error) {
	out, err := g.client.AdminInitiateAuth(ctx, &cognito.AdminInitiateAuthInput{
		UserPoolId: aws.String(g.userPoolID),
		ClientId:   aws.String(clientID),
		AuthFlow:   types.AuthFlowTypeRefreshTokenAuth,
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, translateErr("refresh token auth", err)
	}
	return outcomeFromAuth(out.AuthenticationResult, string(out.ChallengeName))
}

// Introspect resolves an access token to its subject. The provider rejects
// expired, revoked and malformed tokens.
func (g *CognitoGateway) Introspect(ctx context.Context, accessToken string) (string, error) {
	out, err := g.client.GetUser(ctx, &cognito.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return "", translateErr("get user", err)
	}
	return aws.ToString(out.Username), nil
}

// ValidateClient confirms the client exists and that redirectURI matches
// one of its registered callback URIs, case-insensitively.
func (g *CognitoGateway) ValidateClient(ctx context.Context, clientID, redirectURI string) (core.ClientCheck, error) {
	out, err := g.client.DescribeUserPoolClient(ctx, &cognito.DescribeUserPoolClientInput{
		ClientId:   aws.String(clientID),
		UserPoolId: aws.String(g.userPoolID),
	})
	if err != nil {
		return core.ClientCheck{Valid: false, Message: "Invalid Client"}, nil
	}

	if out.UserPoolClient != nil {
		for _, uri := range out.UserPoolClient.CallbackURLs {
			if strings.EqualFold(uri, redirectURI) {
				return core.ClientCheck{Valid: true}, nil
			}
		}
	}
	return core.ClientCheck{Valid: false, Message: "Invalid RedirectUri for Client"}, nil
}

// outcomeFromAuth normalizes a Cognito authentication result into the
// gateway's raw outcome shape. SDK results use PascalCase field names.
func outcomeFromAuth(result *types.AuthenticationResultType, challenge string) (*core.AuthOutcome, error) {
	if challenge != "" && result == nil {
		return &core.AuthOutcome{Challenge: challenge}, nil
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty authentication result", core.ErrUpstream)
	}
	return &core.AuthOutcome{
		Tokens: core.RawTokens{
			"AccessToken":  aws.ToString(result.AccessToken),
			"IdToken":      aws.ToString(result.IdToken),
			"RefreshToken": aws.ToString(result.RefreshToken),
			"ExpiresIn":    int64(result.ExpiresIn),
			"TokenType":    aws.ToString(result.TokenType),
		},
	}, nil
}

// translateErr maps Cognito SDK errors onto the broker taxonomy. A failing
// challenge-verifier callback is the one case whose message is surfaced to
// callers, so it gets its own error type.
func translateErr(op string, err error) error {
	var lambdaErr *types.UserLambdaValidationException
	if errors.As(err, &lambdaErr) {
		return &core.ChallengeVerifierError{Message: aws.ToString(lambdaErr.Message)}
	}
	return fmt.Errorf("%w: %s: %w", core.ErrUpstream, op, err)
}
