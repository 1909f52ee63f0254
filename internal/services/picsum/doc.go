// Package picsum resolves and downloads placeholder images from a Lorem
// Picsum compatible service. Seeded URLs make the same text map to the
// same picture.
package picsum
