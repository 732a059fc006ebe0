// Command imageedit edits images with a Gemini image model, either one shot
// from the command line or through a local browser front end.
package main

func main() {
	Execute()
}
