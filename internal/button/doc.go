// Package button translates between the canonical action model and the
// bridge's native behaviour-instance encodings.
//
// A switch's behaviour instance stores its button programming in one of
// two incompatible shapes: the current format keys a single "buttons"
// mapping by button resource id, while the legacy format uses separate
// "button1".."buttonN" fields. The format is a property of each
// resource and is detected, never assumed.
//
// The canonical form is ActionSpec, a tagged union over scene cycles,
// time-based schedules, single scene recalls and dimming, with an
// orthogonal long-press override. Encoding is a merge: only the event
// keys owned by the model (on_short_release, on_repeat, on_long_press)
// are rewritten, every other field on the raw payload passes through
// untouched. Decode followed by encode with an unchanged spec
// reproduces a structurally equal payload.
//
// Builder sits above the codec and compiles validated user requests
// into ActionSpecs, resolving scene names and producing a human
// readable preview before anything is written to the bridge.
package button
