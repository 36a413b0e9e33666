/*
Package imagestore keeps the downloaded and derived artist images on an
afero.Fs. Every artist has at most three files:

	original/<id><ext>
	processed/<id>_processed.jpg
	thumbnails/<id>_thumb.jpg
*/
package imagestore
