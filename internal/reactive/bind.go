package reactive

// Bind mounts a view on a cell: render is called once with the current
// value, then again after every change. The returned func must be called
// when the view is torn down.
func Bind[T any](cell Readable[T], render func(T)) (unbind func()) {
	render(cell.Get())
	return cell.Subscribe(render)
}
