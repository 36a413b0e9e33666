/*
Package art is responsible for downloading artist images over the internet.

The Client validates the image URL, fetches it with a browser like User-Agent,
a per request timeout and a size limit, and decides the extension under which
the payload is stored:

  - a known image Content-Type wins (parameters such as charset are ignored)
  - otherwise a known suffix of the URL path
  - otherwise ".jpg"
*/
package art

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate
