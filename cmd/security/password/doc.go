// Package password hashes and verifies admin secrets with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Encoded hashes are untrusted input during Verify. Parameters far above the
// configured cost are refused so a tampered row cannot pin a CPU.
package password
