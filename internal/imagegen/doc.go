// Package imagegen implements the image stage. The picture is chosen
// deterministically from the post text so regenerating unchanged text
// yields the same image; when the seeded image cannot be reached a random
// image of the same size is used instead.
package imagegen
