package jwtclaims

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"auditrelay/pkg/testutil"
)

const (
	testUserID    = "c2344d70-3707-4418-a9c9-dbdb8beca796"
	testSessionID = "8085b7d3-9472-470a-b914-d70071d2b072"
	testM2MUserID = "2cabae38-420a-4c23-8c83-88b210e397cd"
)

type ClaimsSuite struct {
	suite.Suite
	userHeader string
	m2mHeader  string
}

func TestClaimsSuite(t *testing.T) {
	suite.Run(t, new(ClaimsSuite))
}

func (s *ClaimsSuite) SetupSuite() {
	s.userHeader = testutil.BearerToken(s.T(), map[string]any{
		"sub":           testUserID,
		"session_state": testSessionID,
		"name":          "Example User",
	})
	s.m2mHeader = testutil.BearerToken(s.T(), map[string]any{
		"sub":           testM2MUserID,
		"session_state": "6288b3f8-2e02-42a1-8619-920cc596b6f4",
		"clientId":      "catalog",
	})
}

func (s *ClaimsSuite) TestReadFailures() {
	s.Run("blank header", func() {
		_, err := Read("")
		s.ErrorIs(err, ErrBlankToken)

		_, err = Read("   ")
		s.ErrorIs(err, ErrBlankToken)
	})

	s.Run("single segment header", func() {
		_, err := Read("Bearer")
		s.ErrorIs(err, ErrTokenParse)
	})

	s.Run("token is not a JWT", func() {
		_, err := Read("Bearer not-a-jwt")
		s.ErrorIs(err, ErrTokenParse)

		_, err = Read("Basic dXNlcjpwYXNz")
		s.ErrorIs(err, ErrTokenParse)
	})

	s.Run("payload is not base64url JSON", func() {
		_, err := Read("Bearer aaa.!!!.ccc")
		s.ErrorIs(err, ErrTokenParse)
	})
}

func (s *ClaimsSuite) TestM2MClassification() {
	isM2M, err := IsM2MToken(s.userHeader)
	s.Require().NoError(err)
	s.False(isM2M, "token without clientId is non-M2M")

	isM2M, err = IsM2MToken(s.m2mHeader)
	s.Require().NoError(err)
	s.True(isM2M, "token with clientId=catalog is M2M")

	blank := testutil.BearerToken(s.T(), map[string]any{"clientId": "  "})
	isM2M, err = IsM2MToken(blank)
	s.Require().NoError(err)
	s.False(isM2M, "blank clientId is non-M2M")
}

func (s *ClaimsSuite) TestAccessorsDecodeOncePerToken() {
	claims, err := Read(s.userHeader)
	s.Require().NoError(err)

	userID, err := claims.UserID()
	s.Require().NoError(err)
	s.Equal(uuid.MustParse(testUserID), userID)

	sessionID, err := claims.SessionID()
	s.Require().NoError(err)
	s.Equal(uuid.MustParse(testSessionID), sessionID)

	s.Equal("Example User", claims.Username())
}

func (s *ClaimsSuite) TestAbsentClaimsReturnZeroValuesNotErrors() {
	claims, err := Read(testutil.BearerToken(s.T(), map[string]any{}))
	s.Require().NoError(err)

	userID, err := claims.UserID()
	s.NoError(err)
	s.Equal(uuid.Nil, userID)

	sessionID, err := claims.SessionID()
	s.NoError(err)
	s.Equal(uuid.Nil, sessionID)

	s.Empty(claims.Username())
}

func (s *ClaimsSuite) TestMalformedUUIDClaimIsAnIdentityError() {
	claims, err := Read(testutil.BearerToken(s.T(), map[string]any{"sub": "not-a-uuid"}))
	s.Require().NoError(err)

	_, err = claims.UserID()
	s.ErrorIs(err, ErrIdentity)
}

func (s *ClaimsSuite) TestUserIDFromToken() {
	userID, err := UserIDFromToken(s.userHeader)
	s.Require().NoError(err)
	s.Equal(uuid.MustParse(testUserID), userID)

	// M2M tokens still carry a subject; the plain accessor returns it.
	userID, err = UserIDFromToken(s.m2mHeader)
	s.Require().NoError(err)
	s.Equal(uuid.MustParse(testM2MUserID), userID)

	_, err = UserIDFromToken(testutil.BearerToken(s.T(), map[string]any{"name": "nobody"}))
	s.ErrorIs(err, ErrIdentity)
}

func (s *ClaimsSuite) TestUserIDFromNonM2MToken() {
	userID, err := UserIDFromNonM2MToken(s.userHeader)
	s.Require().NoError(err)
	s.Equal(uuid.MustParse(testUserID), userID)

	userID, err = UserIDFromNonM2MToken(s.m2mHeader)
	s.Require().NoError(err)
	s.Equal(uuid.Nil, userID, "M2M token yields no user identity even though sub is present")
}

func (s *ClaimsSuite) TestHasBearer() {
	s.True(HasBearer("Bearer abc"))
	s.True(HasBearer("bearer abc"))
	s.True(HasBearer("BEARER abc"))
	s.False(HasBearer("Basic abc"))
	s.False(HasBearer(""))
	s.False(HasBearer("Bearer"))
}

func (s *ClaimsSuite) TestNonStringClaimValuesAreStringified() {
	claims, err := Read(testutil.BearerToken(s.T(), map[string]any{"clientId": 42}))
	s.Require().NoError(err)
	s.True(claims.IsM2M())
}
