package event_test

import (
	"fmt"

	"github.com/jittakal/kafeventfirehose/pkg/event"
)

func ExamplePartitionID_String() {
	pid := event.PartitionID{
		Topic:     "app-logs",
		Partition: 5,
	}

	fmt.Println(pid.String())
	// Output: app-logs-5
}

func ExampleFromJSON() {
	evt := event.FromJSON([]byte(`{"message":"user logged in","user":"alice"}`))

	user, _ := evt.Get("user")
	fmt.Println(evt.Message(), user)
	// Output: user logged in alice
}
