package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodGet, *baseURL, "/admin/state", nil)
}

func poolsCmd(args []string) {
	fs := flag.NewFlagSet("pools", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	_ = fs.Parse(args)
	call(http.MethodGet, *baseURL, "/admin/pools", url.Values{"actor": {required("actor", *actor)}})
}

func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/restore", url.Values{"actor": {required("actor", *actor)}})
}

func editPoolCmd(op string, args []string) {
	fs := flag.NewFlagSet(op, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	kind := fs.String("kind", "", "personal, aura or reserve (required)")
	amount := fs.Float64("amount", 0, "mana amount")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/pools/"+op, url.Values{
		"actor":  {required("actor", *actor)},
		"kind":   {required("kind", *kind)},
		"amount": {strconv.FormatFloat(*amount, 'f', -1, 64)},
	})
}

func cooldownCmd(args []string) {
	fs := flag.NewFlagSet("cooldown", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	ritual := fs.String("ritual", "", "ritual id (required)")
	_ = fs.Parse(args)
	call(http.MethodGet, *baseURL, "/admin/cooldown", url.Values{
		"actor":  {required("actor", *actor)},
		"ritual": {required("ritual", *ritual)},
	})
}

func resetCooldownCmd(args []string) {
	fs := flag.NewFlagSet("reset-cooldown", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	ritual := fs.String("ritual", "", "ritual id (required)")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/cooldown/reset", url.Values{
		"actor":  {required("actor", *actor)},
		"ritual": {required("ritual", *ritual)},
	})
}

func spellsCmd(args []string) {
	fs := flag.NewFlagSet("spells", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	school := fs.String("school", "", "only list this school")
	_ = fs.Parse(args)
	var q url.Values
	if s := strings.TrimSpace(*school); s != "" {
		q = url.Values{"school": {s}}
	}
	call(http.MethodGet, *baseURL, "/admin/spells", q)
}

// infoCmd covers "spell" and "ritual": one definition by id.
func infoCmd(kind string, args []string) {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	id := fs.String("id", "", kind+" id (required)")
	_ = fs.Parse(args)
	call(http.MethodGet, *baseURL, "/admin/"+kind+"s/info", url.Values{"id": {required("id", *id)}})
}

func ritualsCmd(args []string) {
	fs := flag.NewFlagSet("rituals", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodGet, *baseURL, "/admin/rituals", nil)
}

func reloadCmd(args []string) {
	fs := flag.NewFlagSet("reload", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/reload", nil)
}

func posValues(x, y, z int) url.Values {
	return url.Values{"x": {strconv.Itoa(x)}, "y": {strconv.Itoa(y)}, "z": {strconv.Itoa(z)}}
}

func blockCmd(args []string) {
	fs := flag.NewFlagSet("block", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	x := fs.Int("x", 0, "block x")
	y := fs.Int("y", 64, "block y")
	z := fs.Int("z", 0, "block z")
	block := fs.String("block", "", "block id, air clears (required)")
	_ = fs.Parse(args)
	q := posValues(*x, *y, *z)
	q.Set("block", required("block", *block))
	call(http.MethodPost, *baseURL, "/admin/world/block", q)
}

func buildCmd(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	ritual := fs.String("ritual", "", "ritual id (required)")
	x := fs.Int("x", 0, "origin x")
	y := fs.Int("y", 64, "origin y")
	z := fs.Int("z", 0, "origin z")
	_ = fs.Parse(args)
	q := posValues(*x, *y, *z)
	q.Set("ritual", required("ritual", *ritual))
	call(http.MethodPost, *baseURL, "/admin/world/build", q)
}

func levelCmd(args []string) {
	fs := flag.NewFlagSet("level", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	level := fs.Int("level", 1, "experience level")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/actor/level", url.Values{
		"actor": {required("actor", *actor)},
		"level": {strconv.Itoa(*level)},
	})
}

func giveCmd(args []string) {
	fs := flag.NewFlagSet("give", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	item := fs.String("item", "", "item id (required)")
	count := fs.Int("count", 1, "how many")
	_ = fs.Parse(args)
	call(http.MethodPost, *baseURL, "/admin/actor/give", url.Values{
		"actor": {required("actor", *actor)},
		"item":  {required("item", *item)},
		"count": {strconv.Itoa(*count)},
	})
}

func required(name, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		fmt.Fprintf(os.Stderr, "missing -%s\n", name)
		os.Exit(2)
	}
	return v
}

// call prints the response body and exits non-zero on a non-2xx status.
func call(method, baseURL, path string, q url.Values) {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fail("request: %v", err)
	}
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fail("request: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
