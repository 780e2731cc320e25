// Package core contains the canonical flowsteps domain contracts, entities,
// and orchestration logic: the step execution recorder, the OAuth token
// lifecycle, activity fetching, and baseline change detection. Lower-level
// adapters must depend on this package; core must not depend on
// provider-specific or transport-specific adapters.
package core
