package normalize

import (
	"strings"
	"time"

	domainerrors "registrar/pkg/domain-errors"
	strutil "registrar/pkg/platform/strings"

	"registrar/internal/entity"
	"registrar/internal/registry/models"
)

// normalizeKRS extracts the canonical profile from a full KRS excerpt
// (odpis). The excerpt nests company data under odpis -> dane -> dzial1..3;
// most leaf values may arrive as strings, objects, or lists.
func normalizeKRS(data map[string]any, fetchedAt time.Time) (*models.Profile, error) {
	odpis := asMap(data["odpis"])
	if len(odpis) == 0 {
		odpis = data
	}
	dane := asMap(odpis["dane"])
	if len(dane) == 0 {
		dane = odpis
	}

	naglowek := asMap(odpis["naglowekP"])
	if len(naglowek) == 0 {
		naglowek = asMap(odpis["naglowekA"])
	}
	krsNumber := asString(naglowek["numerKRS"])

	dzial1 := asMap(dane["dzial1"])
	danePodmiotu := asMap(dzial1["danePodmiotu"])
	if krsNumber == "" && len(danePodmiotu) == 0 {
		return nil, domainerrors.New(domainerrors.CodeParse, "payload has no KRS excerpt header or subject data")
	}

	nip, regon := krsSubjectIdentifiers(danePodmiotu)

	profile := &models.Profile{
		Source:           models.SourceKRS,
		LookupKey:        krsNumber,
		FetchedAt:        fetchedAt,
		OfficialName:     asString(danePodmiotu["nazwa"]),
		ShortName:        asString(danePodmiotu["nazwaSkrocona"]),
		LegalForm:        asString(danePodmiotu["formaPrawna"]),
		LegalFormCode:    asString(danePodmiotu["kodFormyPrawnej"]),
		RegistryStatus:   asString(danePodmiotu["status"]),
		RegistrationDate: parseDate(asString(danePodmiotu["dataRejestracjiWKRS"])),
		RolesParsed:      true,
	}

	if krsNumber != "" {
		if v, err := entity.NormalizeIdentifier(entity.IdentifierKRS, krsNumber); err == nil {
			profile.Identifiers = append(profile.Identifiers, models.Identifier{Type: entity.IdentifierKRS, Value: v})
		}
	}
	if nip != "" {
		if v, err := entity.NormalizeIdentifier(entity.IdentifierNIP, nip); err == nil {
			profile.Identifiers = append(profile.Identifiers, models.Identifier{Type: entity.IdentifierNIP, Value: v})
		}
	}
	if regon != "" {
		if v, err := entity.NormalizeIdentifier(entity.IdentifierREGON, regon); err == nil {
			profile.Identifiers = append(profile.Identifiers, models.Identifier{Type: entity.IdentifierREGON, Value: v})
		}
	}

	siedziba := asMap(dzial1["siedzibaIAdres"])
	if addr := krsAddress(asMap(siedziba["adres"])); addr != nil {
		addr.Type = entity.AddressMain
		profile.Addresses = append(profile.Addresses, *addr)
	}

	for _, c := range []struct {
		typ  entity.ContactType
		keys []string
	}{
		{entity.ContactEmail, []string{"adresEmail", "email"}},
		{entity.ContactWebsite, []string{"adresStronyInternetowej", "www"}},
		{entity.ContactPhone, []string{"telefon"}},
	} {
		if v := firstString(siedziba, c.keys...); v != "" {
			profile.Contacts = append(profile.Contacts, models.Contact{Type: c.typ, Value: v, Label: "KRS"})
		}
	}

	profile.PKDMain, profile.PKDCodes = krsPKD(asMap(dane["dzial3"]))
	profile.RoleFacts, profile.RolesParsed = krsRoleFacts(asMap(dane["dzial2"]))

	return profile, nil
}

// krsSubjectIdentifiers walks the identyfikatory history list newest-first;
// the latest entry carries the current NIP/REGON.
func krsSubjectIdentifiers(danePodmiotu map[string]any) (nip, regon string) {
	entries := asSlice(danePodmiotu["identyfikatory"])
	for i := len(entries) - 1; i >= 0; i-- {
		inner := asMap(asMap(entries[i])["identyfikatory"])
		if len(inner) == 0 {
			inner = asMap(entries[i])
		}
		if nip == "" {
			nip = asString(inner["nip"])
		}
		if regon == "" {
			regon = asString(inner["regon"])
		}
		if nip != "" && regon != "" {
			break
		}
	}
	return nip, regon
}

func krsAddress(m map[string]any) *entity.Address {
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
		BuildingNo:  asString(m["nrDomu"]),
		UnitNo:      asString(m["nrLokalu"]),
	}
}

func krsPKD(dzial3 map[string]any) (main string, codes []string) {
	przedmiot := asMap(dzial3["przedmiotDzialalnosci"])
	for _, raw := range asSlice(przedmiot["przedmiotPrzewazajacejDzialalnosci"]) {
		m := asMap(raw)
		code := firstString(m, "kodDzial", "kod")
		if code == "" {
			continue
		}
		codes = append(codes, code)
		if main == "" {
			main = code
		}
	}
	return main, strutil.DedupeAndTrim(codes)
}

// krsRoleFacts reads the representation organ (dzial2) into role facts.
// Returns parsed=false when the section exists but yields no usable members,
// which downstream treats as "role data did not parse cleanly".
func krsRoleFacts(dzial2 map[string]any) (facts []models.RoleFact, parsed bool) {
	if len(dzial2) == 0 {
		return nil, true // no organ section at all is a valid record
	}
	reprezentacja := asMap(dzial2["reprezentacja"])
	if len(reprezentacja) == 0 {
		return nil, true
	}
	mode := asString(reprezentacja["sposobReprezentacji"])
	members := asSlice(reprezentacja["skladOrganu"])
	if members == nil {
		return nil, false
	}
	for _, raw := range members {
		osoba := asMap(raw)
		if len(osoba) == 0 {
			continue
		}
		name := strings.TrimSpace(asString(osoba["imiona"]) + " " + asString(osoba["nazwisko"]))
		if name == "" {
			continue
		}
		facts = append(facts, models.RoleFact{
			SubjectName:        name,
			SubjectPESEL:       asString(asMap(osoba["identyfikator"])["pesel"]),
			Role:               models.RoleManagementBoardMember,
			FunctionTitle:      asString(osoba["funkcjaWOrganie"]),
			RepresentationMode: mode,
		})
	}
	return facts, true
}
