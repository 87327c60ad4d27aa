// Package acl is the anti-corruption layer between the appliance and a
// whisper.cpp speech server.
//
// Server DTOs stay unexported here. Callers get plain transcript segments and
// domain errors:
//
//   - transport failures, open circuit, exhausted retries and 5xx → [domain.ErrUnavailable]
//   - 400/415/422 (audio the server could not read) → [domain.ErrValidation]
//   - any other 4xx (wrong endpoint, wrong server) → [domain.ErrUnavailable]
//
// A new server integration embeds [BaseAdapter], defines its response DTOs
// and translates them with [DecodeResponse] and [TranslateSlice]. See
// [WhisperClient].
package acl
