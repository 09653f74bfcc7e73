package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"registrar/internal/audit"
	"registrar/internal/entity"
	"registrar/internal/registry/apply"
	"registrar/internal/registry/clients"
	clientmocks "registrar/internal/registry/clients/mocks"
	"registrar/internal/registry/collision"
	"registrar/internal/registry/models"
	"registrar/internal/registry/profile"
	"registrar/internal/registry/service"
	"registrar/internal/registry/snapshot"
	"registrar/pkg/domain"
	"registrar/pkg/testutil"
)

const testSigningKey = "handler-test-signing-key"

// =============================================================================
// HTTP Transport Test Suite
// =============================================================================
// Justification for handler tests: the transport is the contract reviewers
// script against. Tests verify auth enforcement, status mapping of domain
// errors, and that the enrich/apply round trip survives JSON serialization.

type HandlersSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mockKRS  *clientmocks.MockClient
	entities *entity.MemoryStore
	router   http.Handler
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockKRS = clientmocks.NewMockClient(s.ctrl)
	s.mockKRS.EXPECT().Source().Return(models.SourceKRS).AnyTimes()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.entities = entity.NewMemoryStore()
	affiliations := entity.NewMemoryAffiliationStore()
	snapshots := snapshot.NewMemoryStore()
	publisher := audit.NewPublisher(audit.NewMemoryStore())

	recorder, err := snapshot.NewRecorder(snapshots, nil, logger)
	s.Require().NoError(err)
	detector, err := collision.NewDetector(s.entities, logger)
	s.Require().NoError(err)
	applier, err := apply.New(s.entities, affiliations, publisher, nil, nil, logger)
	s.Require().NoError(err)

	svc, err := service.New(service.Config{
		Entities:     s.entities,
		Affiliations: affiliations,
		Recorder:     recorder,
		Snapshots:    snapshots,
		Profiles:     profile.NewMemoryStore(),
		Clients:      []clients.Client{s.mockKRS},
		Detector:     detector,
		Applier:      applier,
		Publisher:    publisher,
		Logger:       logger,
	})
	s.Require().NoError(err)

	handler, err := NewHandler(svc, s.entities, logger)
	s.Require().NoError(err)
	s.router = NewRouter(handler, testSigningKey, logger)
}

func (s *HandlersSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlersSuite) authorize(req *http.Request) *http.Request {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "reviewer@registrar",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+signed)
	return req
}

func (s *HandlersSuite) createEntity(label string, identifiers ...IdentifierDTO) string {
	req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost, "/entities", CreateEntityRequest{
		Type:           string(entity.TypeLegalPerson),
		CanonicalLabel: label,
		Identifiers:    identifiers,
	}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[EntityResponse](s.T(), rr).ID
}

const krsBody = `{
	"odpis": {
		"naglowekP": {"numerKRS": "12345"},
		"dane": {
			"dzial1": {
				"danePodmiotu": {
					"nazwa": "ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
					"identyfikatory": [{"identyfikatory": {"nip": "5261040828"}}]
				},
				"siedzibaIAdres": {
					"adres": {"miejscowosc": "Warszawa", "kodPocztowy": "00-001", "ulica": "ul. Prosta", "nrDomu": "51"}
				}
			}
		}
	}
}`

func (s *HandlersSuite) expectFetch(lookupKey string) {
	s.mockKRS.EXPECT().Fetch(gomock.Any(), lookupKey).Return(models.RawPayload{
		Bytes:           []byte(krsBody),
		Format:          models.FormatJSON,
		SourceTimestamp: time.Now().UTC(),
	}, nil)
}

// =============================================================================
// Auth and Probes
// =============================================================================

func (s *HandlersSuite) TestAuth() {
	s.Run("missing token is rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/registry/status"))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("token signed with another key is rejected", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
		signed, err := token.SignedString([]byte("some-other-key"))
		s.Require().NoError(err)
		req := testutil.NewRequest(s.T(), http.MethodGet, "/registry/status")
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("healthz needs no token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("metrics needs no token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})
}

// =============================================================================
// Entity Endpoints
// =============================================================================

func (s *HandlersSuite) TestCreateAndGetEntity() {
	id := s.createEntity("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
		IdentifierDTO{Type: "KRS", Value: "0000012345"})

	s.Run("created entity is readable", func() {
		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet, "/entities/"+id)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalResponse[EntityResponse](s.T(), rr)
		s.Equal("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA", got.CanonicalLabel)
		s.Require().Len(got.Identifiers, 1)
		s.Equal("0000012345", got.Identifiers[0].Value)
	})

	s.Run("unknown id is not found", func() {
		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet,
			"/entities/00000000-0000-0000-0000-000000000001")))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("malformed id is a bad request", func() {
		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet, "/entities/not-a-uuid")))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("unknown entity type is rejected", func() {
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost, "/entities", CreateEntityRequest{
			Type:           "PARTNERSHIP",
			CanonicalLabel: "X",
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

// =============================================================================
// Enrich and Apply
// =============================================================================

func (s *HandlersSuite) TestEnrich() {
	id := s.createEntity("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
		IdentifierDTO{Type: "KRS", Value: "0000012345"})
	s.expectFetch("0000012345")

	req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/entities/"+id+"/enrich", EnrichRequest{Source: "KRS"}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[EnrichResponse](s.T(), rr)
	s.True(resp.NewSnapshot)
	s.Equal("0000012345", resp.LookupKey)
	s.Require().Len(resp.Proposals, 2)
	s.Equal("ADD_IDENTIFIER", resp.Proposals[0].Kind)
	s.Equal("ADD_ADDRESS", resp.Proposals[1].Kind)
	s.Nil(resp.Applied)

	s.Run("returned proposals apply through the apply endpoint", func() {
		applyReq := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/"+id+"/proposals/apply", ApplyRequest{
				SnapshotID: resp.SnapshotID,
				Proposals:  resp.Proposals,
			}))
		applyRR := testutil.DoRequest(s.router, applyReq)
		testutil.AssertStatus(s.T(), applyRR, http.StatusOK)
		result := testutil.UnmarshalResponse[ApplyResult](s.T(), applyRR)
		s.Equal(2, result.Created)
	})
}

func (s *HandlersSuite) TestEnrichApplyAll() {
	id := s.createEntity("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
		IdentifierDTO{Type: "KRS", Value: "0000012345"})
	s.expectFetch("0000012345")

	req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/entities/"+id+"/enrich?apply_all=true", EnrichRequest{Source: "KRS"}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[EnrichResponse](s.T(), rr)
	s.Require().NotNil(resp.Applied)
	s.Equal(2, resp.Applied.Created)

	eid, err := s.entities.Get(context.Background(), mustParseEntityID(s.T(), id))
	s.Require().NoError(err)
	s.Len(eid.Identifiers, 2)
	s.Len(eid.Addresses, 1)
}

func (s *HandlersSuite) TestEnrichErrors() {
	s.Run("unknown source in body", func() {
		id := s.createEntity("ALFA")
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/"+id+"/enrich", EnrichRequest{Source: "REGON_API"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("unknown entity", func() {
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/00000000-0000-0000-0000-000000000001/enrich", EnrichRequest{Source: "KRS"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("registry outage maps to bad gateway", func() {
		id := s.createEntity("BETA", IdentifierDTO{Type: "KRS", Value: "0000054321"})
		s.mockKRS.EXPECT().Fetch(gomock.Any(), "0000054321").Return(models.RawPayload{},
			clients.NewClientError(clients.CategoryOutage, models.SourceKRS, "registry unavailable", nil))

		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/"+id+"/enrich", EnrichRequest{Source: "KRS"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadGateway)
	})

	s.Run("non applyable proposal kind is rejected before the service", func() {
		id := s.createEntity("GAMMA")
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/"+id+"/proposals/apply", ApplyRequest{
				Proposals: []ProposalDTO{{Kind: "COLLISION", Path: "identifiers[0]"}},
			}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
	})
}

// =============================================================================
// Status and Snapshots
// =============================================================================

func (s *HandlersSuite) TestStatusAndSnapshots() {
	s.Run("status lists configured sources", func() {
		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet, "/registry/status")))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Sources []service.SourceStatus `json:"sources"`
		}](s.T(), rr)
		s.Require().Len(resp.Sources, 2)
	})

	s.Run("snapshots list the fetch history", func() {
		id := s.createEntity("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
			IdentifierDTO{Type: "KRS", Value: "0000012345"})
		s.expectFetch("0000012345")
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/entities/"+id+"/enrich", EnrichRequest{Source: "KRS"}))
		testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)

		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet,
			"/entities/"+id+"/snapshots")))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Snapshots []SnapshotDTO `json:"snapshots"`
		}](s.T(), rr)
		s.Require().Len(resp.Snapshots, 1)
		s.Equal("0000012345", resp.Snapshots[0].LookupKey)
	})
}

func mustParseEntityID(t *testing.T, s string) domain.EntityID {
	t.Helper()
	id, err := domain.ParseEntityID(s)
	require.NoError(t, err)
	return id
}

func (s *HandlersSuite) TestCreateEntityCanonicalizesIdentifiers() {
	s.Run("dashed NIP stored canonical", func() {
		id := s.createEntity("ALFA SP. Z O.O.", IdentifierDTO{Type: "NIP", Value: "526-104-08-28"})

		rr := testutil.DoRequest(s.router, s.authorize(testutil.NewRequest(s.T(), http.MethodGet, "/entities/"+id)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		got := testutil.UnmarshalResponse[EntityResponse](s.T(), rr)
		s.Require().Len(got.Identifiers, 1)
		s.Equal("5261040828", got.Identifiers[0].Value)
	})

	s.Run("invalid NIP rejected", func() {
		req := s.authorize(testutil.NewJSONRequest(s.T(), http.MethodPost, "/entities", CreateEntityRequest{
			Type:           string(entity.TypeLegalPerson),
			CanonicalLabel: "BETA SP. Z O.O.",
			Identifiers:    []IdentifierDTO{{Type: "NIP", Value: "not-a-nip"}},
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
