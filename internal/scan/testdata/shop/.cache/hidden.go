package cache

type HiddenThing struct {
	ID string
}
