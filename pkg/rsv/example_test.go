package rsv_test

import (
	"fmt"

	"github.com/birdayz/rsv/pkg/rsv"
)

func Example() {
	table := rsv.Table{
		rsv.TextRow("id", "name"),
		{rsv.Text("1"), rsv.Null()},
		{},
	}

	data := rsv.Encode(table)
	fmt.Printf("% X\n", data)

	decoded, err := rsv.Decode(data)
	if err != nil {
		panic(err)
	}
	js, _ := rsv.ToJSON(decoded)
	fmt.Println(string(js))

	// Output:
	// 69 64 FF 6E 61 6D 65 FF FD 31 FF FE FF FD FD
	// [["id","name"],["1",null],[]]
}

func ExampleFromJSON() {
	table, err := rsv.FromJSON([]byte(`[["a", null, ""], []]`))
	if err != nil {
		panic(err)
	}
	for i, row := range table {
		for j, c := range row {
			if c.IsNull() {
				fmt.Printf("%d,%d: NULL\n", i, j)
				continue
			}
			fmt.Printf("%d,%d: %q\n", i, j, c.String)
		}
	}

	// Output:
	// 0,0: "a"
	// 0,1: NULL
	// 0,2: ""
}
