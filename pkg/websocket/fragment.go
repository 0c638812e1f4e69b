package websocket

// DefaultFragmentSize is the payload size of each frame sent by the
// fragmentation policy.
const DefaultFragmentSize = 100

// fragments splits data into chunks of at most size bytes. An empty payload
// yields a single empty chunk so that a frame is still sent.
func fragments(data []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultFragmentSize
	}
	if len(data) == 0 {
		return [][]byte{{}}
	}
	out := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > size {
		out = append(out, data[:size])
		data = data[size:]
	}
	return append(out, data)
}
