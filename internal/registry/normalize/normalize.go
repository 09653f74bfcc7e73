// Package normalize converts raw registry payloads into the canonical
// Profile. Normalization is a pure function: no storage, no network, and the
// same payload always yields the same profile.
package normalize

import (
	"encoding/json"

	domainerrors "registrar/pkg/domain-errors"

	"registrar/internal/registry/models"
)

// Normalize dispatches on the declared source registry, never on payload
// shape. Unknown and extra fields are ignored; a payload that cannot be
// decoded, or whose top-level shape does not match the registry's schema,
// fails with a parse-coded error.
func Normalize(payload models.RawPayload, source models.Source) (*models.Profile, error) {
	if payload.Format != models.FormatJSON {
		return nil, domainerrors.Newf(domainerrors.CodeParse, "unsupported payload format %q for %s", payload.Format, source)
	}

	var data map[string]any
	if err := json.Unmarshal(payload.Bytes, &data); err != nil {
		return nil, domainerrors.Wrap(domainerrors.CodeParse, "decode registry payload", err)
	}

	switch source {
	case models.SourceKRS:
		return normalizeKRS(data, payload.SourceTimestamp)
	case models.SourceCEIDG:
		return normalizeCEIDG(data, payload.SourceTimestamp)
	default:
		return nil, domainerrors.Newf(domainerrors.CodeParse, "unknown source registry %q", source)
	}
}
