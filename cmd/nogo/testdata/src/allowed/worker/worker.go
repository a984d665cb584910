package worker

func Spawn() {
	go func() {}()
}
