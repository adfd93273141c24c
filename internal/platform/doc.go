// Package platform contains the glue to external tooling and the OS:
// the yt-dlp backed extractor (probe and fetch), playlist expansion,
// output path helpers, MIME sniffing and the Android media scanner.
package platform
