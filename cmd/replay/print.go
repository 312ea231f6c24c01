package main

import (
	"encoding/json"
	"fmt"
)

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
