// Package lotledger decodes binary portfolio archives and derives FIFO
// cost-basis lots and realized gains from them.
//
// The core functionalities include:
//   - Archive Decoding: validating the container and its format header, then
//     decoding the payload message into a raw tree (DecodeRaw), with exact
//     byte offsets on any malformed input.
//   - Ledger Building: resolving every reference of the raw tree into a
//     normalized, cross-validated Ledger (Build, Decode).
//   - Lot Engine: replaying each (portfolio, security) pair chronologically,
//     splits included, into open lots and realized gains (Replay).
//   - Rebuild: recomputing every pair in parallel and replacing the stored
//     state in one store transaction (Rebuild, RebuildArchive).
//
// All amounts are fixed-point integers: Money and Shares at 10^-8, Rate at
// 10^-12. Arithmetic never rounds silently and never clamps; a result that
// cannot be represented is an *ArithmeticError.
//
// This package serves as the foundational logic for the `ledger` command-line
// tool.
package lotledger
