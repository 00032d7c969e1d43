package robots

import (
	"errors"
	"testing"
)

// allowed is a test helper that fails on query errors.
func allowed(t *testing.T, r *Robots, agent, path string) bool {
	t.Helper()
	ok, err := r.IsPathAllowed(agent, path)
	if err != nil {
		t.Fatalf("IsPathAllowed(%q, %q) returned error: %v", agent, path, err)
	}
	return ok
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{"/", "/"},
		{"file.html", "/file.html"},
		{"/dir/", "/dir/"},
		{"//a//file.html", "/a/file.html"},
		{"///f.html", "/f.html"},
		{`/\/f.html`, "/f.html"},
		{`\dir\file.html`, "/dir/file.html"},
		{"/a/./b/../c/", "/a/c/"},
		{"/../../x", "/x"},
		{"/:/f.html", "/:/f.html"},
		{"/*/f.html", "/*/f.html"},
		{`/"/f.html`, `/"/f.html`},
		{"/</f.html", "/</f.html"},
		{"/>/f.html", "/>/f.html"},
		{"/|/f.html", "/|/f.html"},
		{"/?/f.html", "/?/f.html"},
		{"/search?q=a//b", "/search?q=a//b"},
		{"a.gif$", "/a.gif$"},
		{"/Dir/File.EXT", "/Dir/File.EXT"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			if got := NormalizePath(tc.input); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestIsPathAllowed(t *testing.T) {
	t.Parallel()

	t.Run("empty user agent is rejected", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow: /"))
		for _, ua := range []string{"", " ", "\t"} {
			if _, err := r.IsPathAllowed(ua, ""); !errors.Is(err, ErrInvalidUserAgent) {
				t.Errorf("expected ErrInvalidUserAgent for %q, got %v", ua, err)
			}
		}
	})

	t.Run("orphaned rule does not apply", func(t *testing.T) {
		t.Parallel()
		if !allowed(t, Parse("Disallow: /"), "*", "/foo") {
			t.Error("expected /foo to be allowed")
		}
	})

	t.Run("everything is allowed without access rules", func(t *testing.T) {
		t.Parallel()
		for _, text := range []string{"", doc("User-agent: *", "Crawl-delay: 5")} {
			r := Parse(text)
			for _, agent := range []string{"*", "some robot"} {
				for _, path := range []string{"", "/", "/file.html", "/directory/"} {
					if !allowed(t, r, agent, path) {
						t.Errorf("expected %q allowed for %q", path, agent)
					}
				}
			}
		}
	})

	t.Run("rules for other robots do not apply", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: Slurp", "Disallow: /"))
		for _, path := range []string{"", "/", "/file.html", "/directory/"} {
			if !allowed(t, r, "some robot", path) {
				t.Errorf("expected %q allowed", path)
			}
		}
	})

	t.Run("user agent match is case-insensitive", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc(
			"User-agent: Slurp", "Disallow: /",
			"User-agent: Exabot", "Disallow: /",
			"User-agent: Exabot", "Disallow: /",
			"User-agent: figtree", "Disallow: /",
		))
		for _, agent := range []string{"Slurp", "slurp", "Exabot", "exabot", "FigTree/0.1 Robot libwww-perl/5.04"} {
			for _, path := range []string{"", "/", "/file.html", "/dir"} {
				if allowed(t, r, agent, path) {
					t.Errorf("expected %q disallowed for %q", path, agent)
				}
			}
		}
	})

	t.Run("named group wins over wildcard", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow: /", "User-agent: SiteMapper", "Disallow: /private/"))
		if !allowed(t, r, "SiteMapper/1.0", "/public") {
			t.Error("expected named group to replace wildcard rules")
		}
		if allowed(t, r, "SiteMapper/1.0", "/private/x") {
			t.Error("expected named group rule to apply")
		}
		if allowed(t, r, "OtherBot", "/public") {
			t.Error("expected wildcard rule for other agents")
		}
	})

	t.Run("disallow is a prefix match", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow: /help"))
		for _, path := range []string{"/help", "/help.ext", "/help/", "/help/file.ext", "/help/dir/", "/help/dir/file.ext"} {
			if allowed(t, r, "*", path) {
				t.Errorf("expected %q disallowed", path)
			}
		}
	})

	t.Run("empty disallow allows everything", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow:"))
		if !allowed(t, r, "*", "/anything") {
			t.Error("expected empty disallow to match nothing")
		}
	})

	t.Run("allow and disallow", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Allow: /dir/file.ext", "Disallow: /dir/"))
		for _, path := range []string{"foo", "/dir/file.ext", "/dir/file.ext1"} {
			if !allowed(t, r, "*", path) {
				t.Errorf("expected %q allowed", path)
			}
		}
		for _, path := range []string{"/dir/file2.ext", "/dir/", "/dir/dir/"} {
			if allowed(t, r, "*", path) {
				t.Errorf("expected %q disallowed", path)
			}
		}
	})

	t.Run("path match is case-sensitive", func(t *testing.T) {
		t.Parallel()
		testCases := []struct {
			rule string
			path string
		}{
			{"/dir/file.ext", "/dir/File.ext"},
			{"/dir/file.ext", "/Dir/file.ext"},
			{"/*/file.html", "/a/File.html"},
			{"/*.gif$", "a.GIF"},
		}
		for _, tc := range testCases {
			r := Parse(doc("User-agent: *", "Disallow: "+tc.rule))
			if !allowed(t, r, "*", tc.path) {
				t.Errorf("rule %q: expected %q allowed", tc.rule, tc.path)
			}
		}
	})

	t.Run("dollar anchors the end", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow: /*.gif$"))
		for _, path := range []string{"asd", "a.gifa", "a.gif$"} {
			if !allowed(t, r, "*", path) {
				t.Errorf("expected %q allowed", path)
			}
		}
		for _, path := range []string{"a.gif", "foo.gif", "b.a.gif", "a.gif.gif"} {
			if allowed(t, r, "*", path) {
				t.Errorf("expected %q disallowed", path)
			}
		}
	})

	t.Run("star wildcard", func(t *testing.T) {
		t.Parallel()
		testCases := []struct {
			rule     string
			path     string
			expected bool
		}{
			{"/*/file.html", "/foo/", true},
			{"/*/file.html", "file.html", true},
			{"/*/file.html", "/foo/file2.html", true},
			{"/*/file.html", "/a/file.html", false},
			{"/*/file.html", "/dir/file.html", false},
			{"/*/file.html", "//a//file.html", false},
			{"/*/file.html", "/a/a/file.html", false},
			{"/*/file.html", "/a/a/file.htmlz", false},
			{"/*/file.html", "///f.html", true},
			{"/*/file.html", `/\/f.html`, true},
			{"/*/file.html", "/:/f.html", true},
			{"/*/file.html", "/*/f.html", true},
			{"/*/file.html", "/?/f.html", true},
			{"/*/file.html", `/"/f.html`, true},
			{"/*/file.html", "/</f.html", true},
			{"/*/file.html", "/>/f.html", true},
			{"/*/file.html", "/|/f.html", true},
			{"/private*/", "/private/", false},
			{"/private*/", "/Private/", true},
			{"/private*/", "/private/f.html", false},
			{"/private*/", "/private/dir/", false},
			{"/private*/", "/private/dir/f.html", false},
			{"/private*/", "/private1/", false},
			{"/private*/", "/Private1/", true},
			{"/private*/", "/private1/f.html", false},
			{"/private*/", "/private1/dir/", false},
			{"/private*/", "/private1/dir/f.html", false},
		}
		for _, tc := range testCases {
			r := Parse(doc("User-agent: *", "Disallow: "+tc.rule))
			if got := allowed(t, r, "*", tc.path); got != tc.expected {
				t.Errorf("rule %q path %q: expected %v, got %v", tc.rule, tc.path, tc.expected, got)
			}
		}
	})
}

func TestPolicies(t *testing.T) {
	t.Parallel()

	// Disallow comes first and is shorter than the Allow that also matches.
	text := doc("User-agent: *", "Disallow: /shop", "Allow: /shop/cart", "Disallow: /shop/cart/checkout")

	testCases := []struct {
		name     string
		policy   Policy
		path     string
		expected bool
	}{
		{"standard first match disallows", Standard, "/shop/cart", false},
		{"standard unmatched path", Standard, "/home", true},
		{"allow-overrides allow wins", AllowOverrides, "/shop/cart", true},
		{"allow-overrides allow wins over longer disallow", AllowOverrides, "/shop/cart/checkout", true},
		{"allow-overrides disallow without allow", AllowOverrides, "/shop/shoes", false},
		{"more-specific allow is longer", MoreSpecific, "/shop/cart", true},
		{"more-specific disallow is longer", MoreSpecific, "/shop/cart/checkout", false},
		{"more-specific only disallow", MoreSpecific, "/shop/shoes", false},
		{"more-specific unmatched path", MoreSpecific, "/home", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := Parse(text, WithPolicy(tc.policy))
			if got := allowed(t, r, "*", tc.path); got != tc.expected {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}

	t.Run("more-specific ignores wildcards when measuring length", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Allow: /a*********", "Disallow: /ab"))
		if allowed(t, r, "*", "/abc") {
			t.Error("expected the longer literal disallow to win")
		}
	})

	t.Run("more-specific prefers allow at equal length", func(t *testing.T) {
		t.Parallel()
		r := Parse(doc("User-agent: *", "Disallow: /page", "Allow: /page"))
		if !allowed(t, r, "*", "/page") {
			t.Error("expected allow to win the tie")
		}
	})
}
