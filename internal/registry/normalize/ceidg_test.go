package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
	domainerrors "registrar/pkg/domain-errors"
)

type CEIDGNormalizeSuite struct {
	suite.Suite
	fetchedAt time.Time
}

func TestCEIDGNormalizeSuite(t *testing.T) {
	suite.Run(t, new(CEIDGNormalizeSuite))
}

func (s *CEIDGNormalizeSuite) SetupTest() {
	s.fetchedAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func (s *CEIDGNormalizeSuite) normalize(payload string) (*models.Profile, error) {
	return Normalize(models.RawPayload{
		Bytes:           []byte(payload),
		Format:          models.FormatJSON,
		SourceTimestamp: s.fetchedAt,
	}, models.SourceCEIDG)
}

// =============================================================================
// Full Record Extraction
// =============================================================================

func (s *CEIDGNormalizeSuite) TestFullRecord() {
	payload := `{
		"firmy": [{
			"wlasciciel": {"imie": "Jan", "nazwisko": "Kowalski", "nip": "526-10-40-828"},
			"firma": "Uslugi Remontowe Jan Kowalski",
			"regon": "010531391",
			"status": "Aktywny",
			"dataRozpoczecia": "2015-06-01",
			"adresDzialalnosci": {
				"miejscowosc": "Warszawa", "kodPocztowy": "00-001",
				"ulica": "Prosta", "budynek": "12", "lokal": "3",
				"wojewodztwo": "mazowieckie"
			},
			"adresDoKorespondencji": {"miejscowosc": "Warszawa", "kodPocztowy": "00-002", "ulica": "Krzywa", "budynek": "1"},
			"dodatkoweMiejscaWykonywaniaDzialalnosci": [
				{"miejscowosc": "Radom", "kodPocztowy": "26-600"}
			],
			"pkd": [
				{"kod": "4120Z", "przewazajace": true},
				{"kod": "4399Z"}
			],
			"kontakt": {"email": "jan@example.pl", "telefon": "+48 600 100 200", "stronaWww": "https://remonty.example.pl"}
		}]
	}`

	profile, err := s.normalize(payload)
	s.Require().NoError(err)

	s.Run("owner and business name", func() {
		s.Equal("Jan", profile.FirstName)
		s.Equal("Kowalski", profile.LastName)
		s.Equal("Uslugi Remontowe Jan Kowalski", profile.OfficialName)
		s.Equal("Uslugi Remontowe Jan Kowalski", profile.Label())
	})

	s.Run("identifiers normalized and lookup key set", func() {
		s.Require().Len(profile.Identifiers, 2)
		s.Equal(entity.IdentifierNIP, profile.Identifiers[0].Type)
		s.Equal("5261040828", profile.Identifiers[0].Value)
		s.Equal(entity.IdentifierREGON, profile.Identifiers[1].Type)
		s.Equal("010531391", profile.Identifiers[1].Value)
		s.Equal("NIP:5261040828", profile.LookupKey)
	})

	s.Run("status uppercased and registration date parsed", func() {
		s.Equal("AKTYWNY", profile.RegistryStatus)
		s.Require().NotNil(profile.RegistrationDate)
		s.Equal("2015-06-01", profile.RegistrationDate.Format("2006-01-02"))
	})

	s.Run("addresses in declaration order with types", func() {
		s.Require().Len(profile.Addresses, 3)
		s.Equal(entity.AddressMain, profile.Addresses[0].Type)
		s.Equal("Prosta", profile.Addresses[0].Street)
		s.Equal("12", profile.Addresses[0].BuildingNo)
		s.Equal("3", profile.Addresses[0].UnitNo)
		s.Equal("PL", profile.Addresses[0].Country)
		s.Equal(entity.AddressCorrespondence, profile.Addresses[1].Type)
		s.Equal("00-002", profile.Addresses[1].PostalCode)
		s.Equal(entity.AddressBusiness, profile.Addresses[2].Type)
		s.Equal("Radom", profile.Addresses[2].City)
	})

	s.Run("prevailing pkd wins", func() {
		s.Equal("4120Z", profile.PKDMain)
		s.Equal([]string{"4120Z", "4399Z"}, profile.PKDCodes)
	})

	s.Run("contacts labeled by source", func() {
		s.Require().Len(profile.Contacts, 3)
		s.Equal(entity.ContactEmail, profile.Contacts[0].Type)
		s.Equal("jan@example.pl", profile.Contacts[0].Value)
		s.Equal("CEIDG", profile.Contacts[0].Label)
		s.Equal(entity.ContactWebsite, profile.Contacts[1].Type)
		s.Equal(entity.ContactPhone, profile.Contacts[2].Type)
	})

	s.Run("sole proprietorship has no role facts", func() {
		s.Empty(profile.RoleFacts)
		s.True(profile.RolesParsed)
	})
}

// =============================================================================
// Variants and Edge Cases
// =============================================================================

func (s *CEIDGNormalizeSuite) TestUnwrappedEntry() {
	profile, err := s.normalize(`{"nip": "5261040828", "nazwa": "Firma Testowa", "status": "wykreslony"}`)
	s.Require().NoError(err)
	s.Equal("Firma Testowa", profile.OfficialName)
	s.Equal("WYKRESLONY", profile.RegistryStatus)
	s.Equal("NIP:5261040828", profile.LookupKey)
}

func (s *CEIDGNormalizeSuite) TestRegonOnlyLookupKey() {
	profile, err := s.normalize(`{"regon": "010531391", "firma": "Bez NIP"}`)
	s.Require().NoError(err)
	s.Equal("REGON:010531391", profile.LookupKey)
}

func (s *CEIDGNormalizeSuite) TestSuspensionDates() {
	profile, err := s.normalize(`{
		"nip": "5261040828",
		"firma": "Zawieszona",
		"dataZawieszenia": "2024-01-15",
		"dataWznowienia": "2024-09-01"
	}`)
	s.Require().NoError(err)
	s.Require().NotNil(profile.SuspensionDate)
	s.Equal("2024-01-15", profile.SuspensionDate.Format("2006-01-02"))
	s.Require().NotNil(profile.ResumptionDate)
	s.Equal("2024-09-01", profile.ResumptionDate.Format("2006-01-02"))
}

func (s *CEIDGNormalizeSuite) TestEmptyPayload() {
	_, err := s.normalize(`{"firmy": []}`)
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeParse))
}

func (s *CEIDGNormalizeSuite) TestMalformedJSON() {
	_, err := s.normalize(`{"firmy": [`)
	s.Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeParse))
}

func (s *CEIDGNormalizeSuite) TestMalformedNIPSkipped() {
	profile, err := s.normalize(`{"nip": "12345", "regon": "010531391", "firma": "Zly NIP"}`)
	s.Require().NoError(err)
	s.Require().Len(profile.Identifiers, 1)
	s.Equal(entity.IdentifierREGON, profile.Identifiers[0].Type)
	s.Equal("REGON:010531391", profile.LookupKey)
}
