// Package models defines the core domain models for the group ordering engine.
//
// # Models
//
//   - GroupOrder: the aggregate root, a shared order identified by a short code
//   - Participant: one member (host or guest) with a private ledger of items
//   - Item: a line item on a participant's ledger, priced server-side
//   - Split: one participant's payable share of the final bill
//   - Identity: tagged user-or-guest identity for every caller
//   - User: a registered account for the built-in identity provider
//
// # Design Principles
//
// 1. **Structural invariants**: Identity is a tagged variant so "user XOR
// guest session" holds by construction instead of via nullable fields.
// 2. **Derived money is recomputed, never trusted**: participant subtotals and
// the aggregate subtotal/tax/total are recomputed from the item ledgers on
// every mutation; callers never supply prices.
// 3. **Avoid circular references**: relationships use ID strings, not pointers.
// 4. **Wire-friendly**: models carry JSON tags and are serialized as-is by the
// service layer; secrets (password hashes) are excluded from serialization.
package models
