package main

import (
	"encoding/json"
	"fmt"
	"os"
)

const usage = `usage: admin <command> [flags]

commands against a running server (-url):
  state                          tick and live actors
  pools -actor ID                pool levels of a live actor
  restore -actor ID              refill every pool of a live actor
  set -actor ID -kind K -amount N
  add -actor ID -kind K -amount N
  cooldown -actor ID -ritual ID  remaining ritual cooldown
  reset-cooldown -actor ID -ritual ID
  spells [-school S]             spell list, optionally one school
  spell -id ID                   one spell definition
  rituals                        ritual list
  ritual -id ID                  one ritual definition and its pattern
  reload                         reread spell and ritual definitions
  block -x X -y Y -z Z -block B  place a block
  build -ritual ID -x X -y Y -z Z
                                 place a ritual's structure around an origin
  level -actor ID -level N       set an actor's level
  give -actor ID -item I [-count N]

commands against the ledger store (-data or -db):
  db ledgers [-actor ID]         persisted pool records
  db casts -actor ID [-limit N]  indexed cast history, newest first
  db catalogs                    recorded catalog digests
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "state":
		stateCmd(args)
	case "pools":
		poolsCmd(args)
	case "restore":
		restoreCmd(args)
	case "set", "add":
		editPoolCmd(os.Args[1], args)
	case "cooldown":
		cooldownCmd(args)
	case "reset-cooldown":
		resetCooldownCmd(args)
	case "spells":
		spellsCmd(args)
	case "spell", "ritual":
		infoCmd(os.Args[1], args)
	case "rituals":
		ritualsCmd(args)
	case "reload":
		reloadCmd(args)
	case "block":
		blockCmd(args)
	case "build":
		buildCmd(args)
	case "level":
		levelCmd(args)
	case "give":
		giveCmd(args)
	case "db":
		dbCmd(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
