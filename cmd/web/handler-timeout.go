package main

// timeoutBody is served by the timeout middleware when a handler misses its deadline.
const timeoutBody = `<html lang="en">
<head><title>Timeout - recoverfit</title></head>
<body>
<h1>Timeout</h1>
<p>The coach took too long to answer.</p>
<a href="/">Back to start</a>
</body>
</html>
`
