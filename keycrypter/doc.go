/*
Package keycrypter persists the master key of a securefs base directory.
	1) Password protection.
		The key is wrapped with AES-GCM under a key derived from the
		password with PBKDF2-HMAC-SHA256 and stored in .securefs.json.
	2) Shamir's Secret Sharing
		The key is split into several shares stored in different
		places (media). A threshold count of shares reconstructs it.
*/
package keycrypter
