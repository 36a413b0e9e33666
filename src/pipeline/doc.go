/*
Package pipeline downloads artist images and turns them into the assets the
cards use. For every artist it validates the URL, fetches the image, stores the
original and derives a square card image and a thumbnail from it.

Failing to derive an image is not fatal. The original is already stored so it
takes the place of the missing image and the outcome is marked as degraded.
*/
package pipeline

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate
