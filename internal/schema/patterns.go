package schema

import "regexp"

// IPAddressPattern matches dotted-quad IPv4 addresses.
var IPAddressPattern = regexp.MustCompile(
	`^(([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])\.){3}` +
		`([0-9]|[1-9][0-9]|1[0-9]{2}|2[0-4][0-9]|25[0-5])$`)

// URLPattern matches http(s) URLs with a domain, localhost, IPv4 or IPv6 host.
var URLPattern = regexp.MustCompile(
	`(?i)^https?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|` +
		`\[?[A-F0-9]*:[A-F0-9:]+\]?)` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)

// VersionPattern matches content versions such as "1.0", "2.15" or "10.9".
// The minor part is a single digit or two digits not starting with zero.
var VersionPattern = regexp.MustCompile(`^[1-9]\d?\.([1-9]\d|\d)$`)
