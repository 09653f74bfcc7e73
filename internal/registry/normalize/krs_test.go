package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
	domainerrors "registrar/pkg/domain-errors"
)

type KRSNormalizeSuite struct {
	suite.Suite
	fetchedAt time.Time
}

func TestKRSNormalizeSuite(t *testing.T) {
	suite.Run(t, new(KRSNormalizeSuite))
}

func (s *KRSNormalizeSuite) SetupTest() {
	s.fetchedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *KRSNormalizeSuite) normalize(payload string) (*models.Profile, error) {
	return Normalize(models.RawPayload{
		Bytes:           []byte(payload),
		Format:          models.FormatJSON,
		SourceTimestamp: s.fetchedAt,
	}, models.SourceKRS)
}

// =============================================================================
// Full Excerpt Extraction
// =============================================================================

func (s *KRSNormalizeSuite) TestFullExcerpt() {
	payload := `{
		"odpis": {
			"naglowekP": {"numerKRS": "12345"},
			"dane": {
				"dzial1": {
					"danePodmiotu": {
						"nazwa": "ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
						"nazwaSkrocona": "ALFA",
						"formaPrawna": "SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA",
						"status": "AKTYWNY",
						"dataRejestracjiWKRS": "2012-03-05",
						"identyfikatory": [
							{"identyfikatory": {"nip": "111-111-11-11"}},
							{"identyfikatory": {"nip": "5261040828", "regon": "010531391"}}
						]
					},
					"siedzibaIAdres": {
						"adres": {
							"miejscowosc": "Warszawa", "kodPocztowy": "00-001",
							"ulica": "ul. Prosta", "nrDomu": "51", "nrLokalu": "2",
							"wojewodztwo": "MAZOWIECKIE", "gmina": "Warszawa"
						},
						"adresEmail": "biuro@alfa.example.pl",
						"adresStronyInternetowej": "https://alfa.example.pl"
					}
				},
				"dzial2": {
					"reprezentacja": {
						"sposobReprezentacji": "KAZDY CZLONEK ZARZADU SAMODZIELNIE",
						"skladOrganu": [
							{"imiona": "ANNA MARIA", "nazwisko": "NOWAK", "funkcjaWOrganie": "PREZES ZARZADU", "identyfikator": {"pesel": "85010112345"}},
							{"imiona": "PIOTR", "nazwisko": "WISNIEWSKI", "funkcjaWOrganie": "CZLONEK ZARZADU"}
						]
					}
				},
				"dzial3": {
					"przedmiotDzialalnosci": {
						"przedmiotPrzewazajacejDzialalnosci": [
							{"kodDzial": "62", "opis": "DZIALALNOSC ZWIAZANA Z OPROGRAMOWANIEM"},
							{"kod": "6312Z"}
						]
					}
				}
			}
		}
	}`

	profile, err := s.normalize(payload)
	s.Require().NoError(err)

	s.Run("subject data", func() {
		s.Equal("ALFA SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA", profile.OfficialName)
		s.Equal("ALFA", profile.ShortName)
		s.Equal("SPOLKA Z OGRANICZONA ODPOWIEDZIALNOSCIA", profile.LegalForm)
		s.Equal("AKTYWNY", profile.RegistryStatus)
		s.Require().NotNil(profile.RegistrationDate)
		s.Equal("2012-03-05", profile.RegistrationDate.Format("2006-01-02"))
	})

	s.Run("krs number zero padded into lookup key and identifiers", func() {
		s.Equal("12345", profile.LookupKey)
		s.Require().Len(profile.Identifiers, 3)
		s.Equal(entity.IdentifierKRS, profile.Identifiers[0].Type)
		s.Equal("0000012345", profile.Identifiers[0].Value)
	})

	s.Run("newest identifier history entry wins", func() {
		s.Equal(entity.IdentifierNIP, profile.Identifiers[1].Type)
		s.Equal("5261040828", profile.Identifiers[1].Value)
		s.Equal(entity.IdentifierREGON, profile.Identifiers[2].Type)
		s.Equal("010531391", profile.Identifiers[2].Value)
	})

	s.Run("seat address is main address", func() {
		s.Require().Len(profile.Addresses, 1)
		addr := profile.Addresses[0]
		s.Equal(entity.AddressMain, addr.Type)
		s.Equal("PL", addr.Country)
		s.Equal("Warszawa", addr.City)
		s.Equal("ul. Prosta", addr.Street)
		s.Equal("51", addr.BuildingNo)
	})

	s.Run("contacts from seat section", func() {
		s.Require().Len(profile.Contacts, 2)
		s.Equal(entity.ContactEmail, profile.Contacts[0].Type)
		s.Equal("biuro@alfa.example.pl", profile.Contacts[0].Value)
		s.Equal("KRS", profile.Contacts[0].Label)
		s.Equal(entity.ContactWebsite, profile.Contacts[1].Type)
	})

	s.Run("prevailing activity codes", func() {
		s.Equal("62", profile.PKDMain)
		s.Equal([]string{"62", "6312Z"}, profile.PKDCodes)
	})

	s.Run("management board role facts", func() {
		s.True(profile.RolesParsed)
		s.Require().Len(profile.RoleFacts, 2)
		s.Equal("ANNA MARIA NOWAK", profile.RoleFacts[0].SubjectName)
		s.Equal("85010112345", profile.RoleFacts[0].SubjectPESEL)
		s.Equal(models.RoleManagementBoardMember, profile.RoleFacts[0].Role)
		s.Equal("PREZES ZARZADU", profile.RoleFacts[0].FunctionTitle)
		s.Equal("KAZDY CZLONEK ZARZADU SAMODZIELNIE", profile.RoleFacts[0].RepresentationMode)
		s.Equal("PIOTR WISNIEWSKI", profile.RoleFacts[1].SubjectName)
		s.Empty(profile.RoleFacts[1].SubjectPESEL)
	})
}

// =============================================================================
// Variants and Edge Cases
// =============================================================================

func (s *KRSNormalizeSuite) TestHistoricalHeaderFallback() {
	profile, err := s.normalize(`{"odpis": {"naglowekA": {"numerKRS": "0000012345"}, "dane": {}}}`)
	s.Require().NoError(err)
	s.Equal("0000012345", profile.LookupKey)
	s.Require().Len(profile.Identifiers, 1)
	s.Equal("0000012345", profile.Identifiers[0].Value)
}

func (s *KRSNormalizeSuite) TestUnwrappedExcerpt() {
	profile, err := s.normalize(`{"naglowekP": {"numerKRS": "7"}, "dane": {"dzial1": {"danePodmiotu": {"nazwa": "BETA"}}}}`)
	s.Require().NoError(err)
	s.Equal("BETA", profile.OfficialName)
	s.Equal("0000000007", profile.Identifiers[0].Value)
}

func (s *KRSNormalizeSuite) TestUnparsableOrgan() {
	profile, err := s.normalize(`{
		"odpis": {
			"naglowekP": {"numerKRS": "12345"},
			"dane": {"dzial2": {"reprezentacja": {"skladOrganu": {"osoba": "nie lista"}}}}
		}
	}`)
	s.Require().NoError(err)
	s.False(profile.RolesParsed)
	s.Empty(profile.RoleFacts)
}

func (s *KRSNormalizeSuite) TestMissingOrganSectionParsesClean() {
	profile, err := s.normalize(`{"odpis": {"naglowekP": {"numerKRS": "12345"}, "dane": {}}}`)
	s.Require().NoError(err)
	s.True(profile.RolesParsed)
}

func (s *KRSNormalizeSuite) TestNoHeaderNoSubject() {
	_, err := s.normalize(`{"odpis": {"dane": {"dzial3": {}}}}`)
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeParse))
}

func (s *KRSNormalizeSuite) TestMalformedJSON() {
	_, err := s.normalize(`{"odpis":`)
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeParse))
}

func (s *KRSNormalizeSuite) TestUnsupportedFormat() {
	_, err := Normalize(models.RawPayload{Bytes: []byte("<odpis/>"), Format: models.FormatXML}, models.SourceKRS)
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeParse))
}
