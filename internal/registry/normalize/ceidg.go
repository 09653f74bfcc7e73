package normalize

import (
	"strings"
	"time"

	domainerrors "registrar/pkg/domain-errors"
	strutil "registrar/pkg/platform/strings"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
)

// normalizeCEIDG extracts the canonical profile from a single CEIDG firm
// entry. CEIDG records are sole proprietorships, so the owner's name doubles
// as the person data and there is no representation organ.
func normalizeCEIDG(data map[string]any, fetchedAt time.Time) (*models.Profile, error) {
	// The v2 API wraps results in a "firmy" array; accept both the wrapped
	// and the unwrapped single-entry form.
	if firms := asSlice(data["firmy"]); len(firms) > 0 {
		data = asMap(firms[0])
	}

	wlasciciel := asMap(data["wlasciciel"])
	nip := firstString(data, "nip")
	if nip == "" {
		nip = asString(wlasciciel["nip"])
	}
	regon := asString(data["regon"])
	businessName := firstString(data, "firma", "nazwa")

	if nip == "" && regon == "" && businessName == "" {
		return nil, domainerrors.New(domainerrors.CodeParse, "payload has no CEIDG firm entry")
	}

	profile := &models.Profile{
		Source:           models.SourceCEIDG,
		FetchedAt:        fetchedAt,
		OfficialName:     businessName,
		FirstName:        firstString(wlasciciel, "imie"),
		LastName:         firstString(wlasciciel, "nazwisko"),
		RegistryStatus:   strings.ToUpper(asString(data["status"])),
		RegistrationDate: parseDate(firstString(data, "dataRozpoczecia", "dataRozpoczeciaDzialalnosci")),
		CessationDate:    parseDate(firstString(data, "dataZakonczenia", "dataZakonczeniaDzialalnosci")),
		SuspensionDate:   parseDate(firstString(data, "dataZawieszenia", "dataZawieszeniaDzialalnosci")),
		ResumptionDate:   parseDate(firstString(data, "dataWznowienia", "dataWznowieniaDzialalnosci")),
		RolesParsed:      true,
	}
	if profile.FirstName == "" {
		profile.FirstName = asString(data["imie"])
	}
	if profile.LastName == "" {
		profile.LastName = asString(data["nazwisko"])
	}

	if nip != "" {
		if v, err := entity.NormalizeIdentifier(entity.IdentifierNIP, nip); err == nil {
			profile.Identifiers = append(profile.Identifiers, models.Identifier{Type: entity.IdentifierNIP, Value: v})
			profile.LookupKey = "NIP:" + v
		}
	}
	if regon != "" {
		if v, err := entity.NormalizeIdentifier(entity.IdentifierREGON, regon); err == nil {
			profile.Identifiers = append(profile.Identifiers, models.Identifier{Type: entity.IdentifierREGON, Value: v})
			if profile.LookupKey == "" {
				profile.LookupKey = "REGON:" + v
			}
		}
	}

	mainAddr := asMap(data["adresDzialalnosci"])
	if len(mainAddr) == 0 {
		mainAddr = asMap(data["adresGlownegoMiejscaWykonywaniaDzialalnosci"])
	}
	if addr := ceidgAddress(mainAddr); addr != nil {
		addr.Type = entity.AddressMain
		profile.Addresses = append(profile.Addresses, *addr)
	}
	if addr := ceidgAddress(asMap(data["adresDoKorespondencji"])); addr != nil {
		addr.Type = entity.AddressCorrespondence
		profile.Addresses = append(profile.Addresses, *addr)
	}
	for _, raw := range asSlice(data["dodatkoweMiejscaWykonywaniaDzialalnosci"]) {
		if addr := ceidgAddress(asMap(raw)); addr != nil {
			addr.Type = entity.AddressBusiness
			profile.Addresses = append(profile.Addresses, *addr)
		}
	}

	// Contact fields appear both inside kontakt and at the top level depending
	// on the CEIDG API version, often with the same value in both places.
	kontakt := asMap(data["kontakt"])
	for _, c := range []struct {
		typ  entity.ContactType
		vals []string
	}{
		{entity.ContactEmail, strutil.DedupeAndTrimLower([]string{asString(kontakt["email"]), asString(data["email"])})},
		{entity.ContactWebsite, strutil.DedupeAndTrim([]string{asString(kontakt["stronaWww"]), asString(data["www"]), asString(data["stronaInternetowa"])})},
		{entity.ContactPhone, strutil.DedupeAndTrim([]string{asString(kontakt["telefon"]), asString(data["telefon"])})},
	} {
		for _, v := range c.vals {
			profile.Contacts = append(profile.Contacts, models.Contact{Type: c.typ, Value: v, Label: "CEIDG"})
		}
	}

	profile.PKDMain, profile.PKDCodes = ceidgPKD(data["pkd"])

	return profile, nil
}

func ceidgAddress(m map[string]any) *entity.Address {
	if len(m) == 0 {
		return nil
	}
	country := asString(m["kraj"])
	if country == "" {
		country = "PL"
	}
	return &entity.Address{
		Country:     country,
		Voivodeship: asString(m["wojewodztwo"]),
		County:      asString(m["powiat"]),
		Gmina:       asString(m["gmina"]),
		City:        asString(m["miejscowosc"]),
		PostalCode:  asString(m["kodPocztowy"]),
		PostOffice:  asString(m["poczta"]),
		Street:      asString(m["ulica"]),
		BuildingNo:  firstString(m, "budynek", "nrNieruchomosci"),
		UnitNo:      firstString(m, "lokal", "nrLokalu"),
	}
}

// ceidgPKD reads classification codes; the entry flagged "przewazajace" is
// the main activity, else the first code wins.
func ceidgPKD(raw any) (main string, codes []string) {
	for _, item := range asSlice(raw) {
		switch t := item.(type) {
		case string:
			if t == "" {
				continue
			}
			codes = append(codes, t)
			if main == "" {
				main = t
			}
		case map[string]any:
			code := asString(t["kod"])
			if code == "" {
				continue
			}
			codes = append(codes, code)
			if prevailing, _ := t["przewazajace"].(bool); prevailing || main == "" {
				main = code
			}
		}
	}
	return main, strutil.DedupeAndTrim(codes)
}
