package httputil

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCookies reads a Netscape-format cookies file (as exported by
// browser extensions and curl) into the client's cookie jar.
// Malformed lines are skipped.
func LoadCookies(client *http.Client, path string) (int, error) {
	if client.Jar == nil {
		return 0, fmt.Errorf("client has no cookie jar")
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening cookies file: %w", err)
	}
	defer f.Close()

	byHost := make(map[string][]*http.Cookie)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		c, host, ok := parseCookieLine(scanner.Text())
		if !ok {
			continue
		}
		byHost[host] = append(byHost[host], c)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading cookies file: %w", err)
	}

	n := 0
	for host, cookies := range byHost {
		client.Jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
		n += len(cookies)
	}
	return n, nil
}

// parseCookieLine parses one tab-separated cookies.txt record:
// domain, include-subdomains, path, secure, expiry, name, value.
func parseCookieLine(line string) (*http.Cookie, string, bool) {
	// curl marks HttpOnly cookies with this prefix instead of commenting them out
	line = strings.TrimPrefix(line, "#HttpOnly_")
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, "", false
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, "", false
	}

	domain := fields[0]
	host := strings.TrimPrefix(domain, ".")
	if host == "" {
		return nil, "", false
	}

	c := &http.Cookie{
		Name:   fields[5],
		Value:  fields[6],
		Path:   fields[2],
		Secure: strings.EqualFold(fields[3], "TRUE"),
	}
	if strings.EqualFold(fields[1], "TRUE") {
		c.Domain = host
	}
	if exp, err := strconv.ParseInt(fields[4], 10, 64); err == nil && exp > 0 {
		c.Expires = time.Unix(exp, 0)
	}

	return c, host, true
}
